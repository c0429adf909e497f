// README: Routing handler; suggested parcel order for a delivery mission.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"depot/internal/modules/parcel"
	"depot/internal/routing"
)

type RoutingHandler struct {
	routes  *routing.RouteService
	parcels *parcel.Service
}

func NewRoutingHandler(routes *routing.RouteService, parcels *parcel.Service) *RoutingHandler {
	return &RoutingHandler{routes: routes, parcels: parcels}
}

type sequenceReq struct {
	WarehouseAddress string   `json:"warehouse_address"`
	ParcelIDs        []string `json:"parcel_ids"`
}

// Suggest returns the parcel ids reordered nearest-first from the warehouse.
// Advisory only: dispatchers feed the result (or their own order) into
// delivery mission creation.
func (h *RoutingHandler) Suggest(c *gin.Context) {
	if h.routes == nil {
		writeError(c, http.StatusServiceUnavailable, "routing is not configured")
		return
	}

	var req sequenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.WarehouseAddress == "" || len(req.ParcelIDs) == 0 {
		writeError(c, http.StatusBadRequest, "warehouse_address and parcel_ids are required")
		return
	}

	stops := make([]routing.Stop, 0, len(req.ParcelIDs))
	for _, id := range req.ParcelIDs {
		p, err := h.parcels.Lookup(c.Request.Context(), id)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		if p.RecipientAddress == "" {
			writeError(c, http.StatusBadRequest, "parcel "+id+" has no recipient address")
			return
		}
		stops = append(stops, routing.Stop{ParcelID: string(p.ID), Address: p.RecipientAddress})
	}

	ordered, err := h.routes.SuggestSequence(c.Request.Context(), req.WarehouseAddress, stops)
	if err != nil {
		writeError(c, http.StatusBadGateway, "routing provider error")
		return
	}

	ids := make([]string, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ParcelID
	}
	writeJSON(c, http.StatusOK, gin.H{"parcel_ids": ids})
}
