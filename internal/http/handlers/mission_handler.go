// README: Mission handlers: creation, driver flow, verification.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"depot/internal/http/middleware"
	"depot/internal/modules/mission"
	"depot/internal/types"
)

type MissionHandler struct {
	missions *mission.Service
}

func NewMissionHandler(svc *mission.Service) *MissionHandler {
	return &MissionHandler{missions: svc}
}

type createPickupReq struct {
	DriverID    string     `json:"driver_id"`
	ShipperID   string     `json:"shipper_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       string     `json:"notes"`
}

func (h *MissionHandler) CreatePickup(c *gin.Context) {
	var req createPickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DriverID == "" || req.ShipperID == "" {
		writeError(c, http.StatusBadRequest, "driver_id and shipper_id are required")
		return
	}
	m, err := h.missions.CreatePickup(c.Request.Context(), mission.PickupCommand{
		DriverID:    types.ID(req.DriverID),
		ShipperID:   types.ID(req.ShipperID),
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
		Actor:       middleware.ActorFrom(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toMissionView(m))
}

type createDeliveryReq struct {
	DriverID    string     `json:"driver_id"`
	WarehouseID string     `json:"warehouse_id"`
	ParcelIDs   []string   `json:"parcel_ids"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       string     `json:"notes"`
}

func (h *MissionHandler) CreateDelivery(c *gin.Context) {
	var req createDeliveryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DriverID == "" || req.WarehouseID == "" || len(req.ParcelIDs) == 0 {
		writeError(c, http.StatusBadRequest, "driver_id, warehouse_id and parcel_ids are required")
		return
	}
	ids := make([]types.ID, len(req.ParcelIDs))
	for i, id := range req.ParcelIDs {
		ids[i] = types.ID(id)
	}
	m, err := h.missions.CreateDelivery(c.Request.Context(), mission.DeliveryCommand{
		DriverID:    types.ID(req.DriverID),
		WarehouseID: types.ID(req.WarehouseID),
		ParcelIDs:   ids,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
		Actor:       middleware.ActorFrom(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toMissionView(m))
}

func (h *MissionHandler) Get(c *gin.Context) {
	m, err := h.missions.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toMissionView(m))
}

func (h *MissionHandler) SecurityCode(c *gin.Context) {
	code, err := h.missions.SecurityCode(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"security_code": code})
}

func (h *MissionHandler) Accept(c *gin.Context) {
	h.step(c, h.missions.Accept)
}

func (h *MissionHandler) Refuse(c *gin.Context) {
	h.step(c, h.missions.Refuse)
}

func (h *MissionHandler) Start(c *gin.Context) {
	h.step(c, h.missions.Start)
}

func (h *MissionHandler) Cancel(c *gin.Context) {
	h.step(c, h.missions.Cancel)
}

func (h *MissionHandler) step(c *gin.Context, fn func(ctx context.Context, id types.ID, actor types.Actor) (*mission.Mission, error)) {
	m, err := fn(c.Request.Context(), types.ID(c.Param("id")), middleware.ActorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toMissionView(m))
}

type codeReq struct {
	Code string `json:"code"`
}

func (h *MissionHandler) Complete(c *gin.Context) {
	var req codeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		writeError(c, http.StatusBadRequest, "code is required")
		return
	}
	m, err := h.missions.CompletePickup(c.Request.Context(), types.ID(c.Param("id")), req.Code, middleware.ActorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toMissionView(m))
}

func (h *MissionHandler) Verify(c *gin.Context) {
	var req codeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		writeError(c, http.StatusBadRequest, "code is required")
		return
	}
	outcome, err := h.missions.VerifyDelivery(c.Request.Context(), mission.VerifyCommand{
		MissionID: types.ID(c.Param("id")),
		ParcelID:  types.ID(c.Param("parcelId")),
		Code:      req.Code,
		Actor:     middleware.ActorFrom(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"outcome": outcome})
}

func (h *MissionHandler) Scan(c *gin.Context) {
	err := h.missions.ScanParcel(c.Request.Context(), types.ID(c.Param("id")), types.ID(c.Param("parcelId")), middleware.ActorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "collected"})
}
