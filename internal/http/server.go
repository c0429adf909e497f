// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"depot/internal/config"
	"depot/internal/http/handlers"
	"depot/internal/http/middleware"
	"depot/internal/modules/mission"
	"depot/internal/modules/parcel"
	"depot/internal/modules/tracking"
	"depot/internal/observability"
	"depot/internal/routing"
)

type ServerDeps struct {
	Log      *slog.Logger
	Mission  *mission.Service
	Parcel   *parcel.Service
	Tracking *tracking.Service
	Routing  *routing.RouteService // nil when no Maps key is configured
	Verify   config.VerifyConfig
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Log), middleware.Logging(s.deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api", middleware.Actor())

	// Creation routes live under their own prefixes; gin's tree cannot mix a
	// static segment with :id at the same position.
	missionHandler := handlers.NewMissionHandler(s.deps.Mission)
	api.POST("/pickup-missions", missionHandler.CreatePickup)
	api.POST("/delivery-missions", missionHandler.CreateDelivery)
	api.GET("/missions/:id", missionHandler.Get)
	api.GET("/missions/:id/code", missionHandler.SecurityCode)
	api.POST("/missions/:id/accept", missionHandler.Accept)
	api.POST("/missions/:id/refuse", missionHandler.Refuse)
	api.POST("/missions/:id/start", missionHandler.Start)
	api.POST("/missions/:id/complete", missionHandler.Complete)
	api.POST("/missions/:id/cancel", missionHandler.Cancel)
	api.POST("/missions/:id/parcels/:parcelId/scan", missionHandler.Scan)
	api.POST("/missions/:id/parcels/:parcelId/verify",
		middleware.RateLimit(s.deps.Verify.RatePerMinute, s.deps.Verify.Burst),
		missionHandler.Verify)

	parcelHandler := handlers.NewParcelHandler(s.deps.Parcel, s.deps.Tracking)
	api.POST("/parcels", parcelHandler.Create)
	api.GET("/parcels/:id", parcelHandler.Get)
	api.POST("/parcels/:id/status", parcelHandler.UpdateStatus)
	api.GET("/parcels/:id/history", parcelHandler.History)

	routingHandler := handlers.NewRoutingHandler(s.deps.Routing, s.deps.Parcel)
	api.POST("/delivery-missions/sequence", routingHandler.Suggest)

	return r
}
