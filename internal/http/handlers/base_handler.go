// README: Base handler utilities (JSON helpers, error mapping, views).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"depot/internal/modules/mission"
	"depot/internal/modules/parcel"
	"depot/internal/modules/tracking"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module error kinds onto response codes. The core
// returns a specific kind for every failure; this switch is the whole
// HTTP-side policy.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, parcel.ErrNotFound),
		errors.Is(err, mission.ErrNotFound),
		errors.Is(err, mission.ErrParcelNotFound),
		errors.Is(err, mission.ErrLinkNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, mission.ErrInvalidCode):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, mission.ErrNotAllowed):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, parcel.ErrIllegalTransition),
		errors.Is(err, parcel.ErrConflict),
		errors.Is(err, mission.ErrParcelAssigned),
		errors.Is(err, mission.ErrLinkClosed),
		errors.Is(err, mission.ErrInvalidState),
		errors.Is(err, mission.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, parcel.ErrBadRequest),
		errors.Is(err, mission.ErrBadRequest),
		errors.Is(err, mission.ErrInvalidDriver):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type linkView struct {
	ParcelID      string     `json:"parcel_id"`
	SequenceOrder int        `json:"sequence_order"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type missionView struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Kind        string     `json:"kind"`
	DriverID    string     `json:"driver_id"`
	WarehouseID *string    `json:"warehouse_id,omitempty"`
	ShipperID   *string    `json:"shipper_id,omitempty"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Links       []linkView `json:"links"`
}

func toMissionView(m *mission.Mission) missionView {
	v := missionView{
		ID:          string(m.ID),
		Number:      m.Number,
		Kind:        string(m.Kind),
		DriverID:    string(m.DriverID),
		Status:      string(m.Status),
		ScheduledAt: m.ScheduledAt,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
		Links:       make([]linkView, 0, len(m.Links)),
	}
	if m.WarehouseID != nil {
		s := string(*m.WarehouseID)
		v.WarehouseID = &s
	}
	if m.ShipperID != nil {
		s := string(*m.ShipperID)
		v.ShipperID = &s
	}
	for _, l := range m.Links {
		v.Links = append(v.Links, linkView{
			ParcelID:      string(l.ParcelID),
			SequenceOrder: l.SequenceOrder,
			Status:        string(l.Status),
			CompletedAt:   l.CompletedAt,
		})
	}
	return v
}

type parcelView struct {
	ID               string    `json:"id"`
	TrackingNumber   string    `json:"tracking_number"`
	Status           string    `json:"status"`
	ShipperID        string    `json:"shipper_id"`
	RecipientName    string    `json:"recipient_name,omitempty"`
	RecipientAddress string    `json:"recipient_address,omitempty"`
	CODAmount        int64     `json:"cod_amount"`
	CODCurrency      string    `json:"cod_currency"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// The security codes are deliberately absent from the view: they travel to
// the recipient out of band, never through the back-office API.
func toParcelView(p *parcel.Parcel) parcelView {
	return parcelView{
		ID:               string(p.ID),
		TrackingNumber:   p.TrackingNumber,
		Status:           string(p.Status),
		ShipperID:        string(p.ShipperID),
		RecipientName:    p.RecipientName,
		RecipientAddress: p.RecipientAddress,
		CODAmount:        p.CODAmount.Amount,
		CODCurrency:      p.CODAmount.Currency,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type eventView struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	MissionID  *string   `json:"mission_id,omitempty"`
	ActorType  string    `json:"actor_type"`
	ActorID    *string   `json:"actor_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEventViews(events []*tracking.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{
			ID:         e.ID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ActorType:  e.ActorType,
			Note:       e.Note,
			CreatedAt:  e.CreatedAt,
		}
		if e.MissionID != nil {
			s := string(*e.MissionID)
			v.MissionID = &s
		}
		if e.ActorID != nil {
			s := string(*e.ActorID)
			v.ActorID = &s
		}
		out = append(out, v)
	}
	return out
}
