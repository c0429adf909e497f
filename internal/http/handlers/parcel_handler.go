// README: Parcel handlers: intake, lookup, status updates, tracking history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"depot/internal/http/middleware"
	"depot/internal/modules/parcel"
	"depot/internal/modules/tracking"
	"depot/internal/types"
)

type ParcelHandler struct {
	parcels  *parcel.Service
	tracking *tracking.Service
}

func NewParcelHandler(parcels *parcel.Service, tracking *tracking.Service) *ParcelHandler {
	return &ParcelHandler{parcels: parcels, tracking: tracking}
}

type createParcelReq struct {
	TrackingNumber   string `json:"tracking_number"`
	ShipperID        string `json:"shipper_id"`
	WarehouseID      string `json:"warehouse_id"`
	RecipientName    string `json:"recipient_name"`
	RecipientPhone   string `json:"recipient_phone"`
	RecipientAddress string `json:"recipient_address"`
	CODAmount        int64  `json:"cod_amount"`
	CODCurrency      string `json:"cod_currency"`
}

func (h *ParcelHandler) Create(c *gin.Context) {
	var req createParcelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.TrackingNumber == "" || req.ShipperID == "" {
		writeError(c, http.StatusBadRequest, "tracking_number and shipper_id are required")
		return
	}

	p := &parcel.Parcel{
		ID:               types.ID(uuid.NewString()),
		TrackingNumber:   req.TrackingNumber,
		Status:           parcel.StatusPending,
		ShipperID:        types.ID(req.ShipperID),
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		RecipientAddress: req.RecipientAddress,
		CODAmount:        types.Money{Amount: req.CODAmount, Currency: currencyOrDefault(req.CODCurrency)},
	}
	if req.WarehouseID != "" {
		id := types.ID(req.WarehouseID)
		p.WarehouseID = &id
	}
	if err := h.parcels.Create(c.Request.Context(), p); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toParcelView(p))
}

func (h *ParcelHandler) Get(c *gin.Context) {
	p, err := h.parcels.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toParcelView(p))
}

type updateStatusReq struct {
	Target string `json:"target"`
	Note   string `json:"note"`
}

func (h *ParcelHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	target := parcel.Status(req.Target)
	if !target.Valid() {
		writeError(c, http.StatusBadRequest, "unknown target status")
		return
	}
	p, err := h.parcels.UpdateStatus(c.Request.Context(), parcel.TransitionCommand{
		ParcelID: types.ID(c.Param("id")),
		Target:   target,
		Actor:    middleware.ActorFrom(c),
		Note:     req.Note,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toParcelView(p))
}

func (h *ParcelHandler) History(c *gin.Context) {
	// Resolve tracking numbers to ids first so history keys stay canonical.
	p, err := h.parcels.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	events, err := h.tracking.HistoryFor(c.Request.Context(), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"parcel_id": p.ID, "events": toEventViews(events)})
}

func currencyOrDefault(v string) string {
	if v == "" {
		return "TND"
	}
	return v
}
