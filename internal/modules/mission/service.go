// README: Mission workflows: batch assignment, driver pickup flow, delivery verification.
package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/codes"
	"depot/internal/infra"
	"depot/internal/modules/parcel"
	"depot/internal/observability"
	"depot/internal/types"
)

var (
	ErrNotFound       = errors.New("mission not found")
	ErrLinkNotFound   = errors.New("mission link not found")
	ErrLinkClosed     = errors.New("mission link already closed")
	ErrInvalidCode    = errors.New("invalid security code")
	ErrParcelNotFound = errors.New("parcel not found")
	ErrParcelAssigned = errors.New("parcel already assigned to an open mission")
	ErrInvalidDriver  = errors.New("invalid driver")
	ErrInvalidState   = errors.New("invalid mission state transition")
	ErrNotAllowed     = errors.New("actor not allowed")
	ErrConflict       = errors.New("mission state conflict")
	ErrBadRequest     = errors.New("bad request")
)

// ParcelEngine is the slice of the parcel service the workflows drive. Every
// method participates in the workflow's transaction scope.
type ParcelEngine interface {
	Transition(ctx context.Context, q infra.Querier, cmd parcel.TransitionCommand) (*parcel.Parcel, error)
	GetForUpdate(ctx context.Context, q infra.Querier, id types.ID) (*parcel.Parcel, error)
	SetDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID, successCode, failureCode string) error
	ClearDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID) error
	ListPendingByShipper(ctx context.Context, q infra.Querier, shipperID types.ID) ([]*parcel.Parcel, error)
	InvalidateHistory(ctx context.Context, ids ...types.ID)
}

type Service struct {
	db      *pgxpool.Pool
	store   *Store
	parcels ParcelEngine
	codeLen int
}

func NewService(db *pgxpool.Pool, store *Store, parcels ParcelEngine, codeLen int) *Service {
	return &Service{db: db, store: store, parcels: parcels, codeLen: codeLen}
}

type PickupCommand struct {
	DriverID    types.ID
	ShipperID   types.ID
	ScheduledAt *time.Time
	Notes       string
	Actor       types.Actor
}

type DeliveryCommand struct {
	DriverID    types.ID
	WarehouseID types.ID
	ParcelIDs   []types.ID
	ScheduledAt *time.Time
	Notes       string
	Actor       types.Actor
}

type VerifyCommand struct {
	MissionID types.ID
	ParcelID  types.ID
	Code      string
	Actor     types.Actor
}

type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeReturnedToDepot Outcome = "returned_to_depot"
)

// CreatePickup opens a collection mission for one shipper. The workflow
// selects the eligible parcels itself: every Pending parcel of the shipper
// that is not already promised to an open mission. Zero eligible parcels
// still creates the mission; the driver simply has nothing to collect yet.
// Parcels keep their Pending status until the driver accepts the mission.
func (s *Service) CreatePickup(ctx context.Context, cmd PickupCommand) (*Mission, error) {
	if cmd.DriverID == "" {
		return nil, ErrInvalidDriver
	}
	if cmd.ShipperID == "" {
		return nil, ErrBadRequest
	}

	code := codes.Generate(s.codeLen)
	m := &Mission{
		ID:           types.ID(uuid.NewString()),
		Number:       newMissionNumber(KindPickup),
		Kind:         KindPickup,
		DriverID:     cmd.DriverID,
		ShipperID:    &cmd.ShipperID,
		Status:       StatusPending,
		SecurityCode: &code,
		ScheduledAt:  cmd.ScheduledAt,
		Notes:        cmd.Notes,
		CreatedAt:    time.Now(),
	}

	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		eligible, err := s.parcels.ListPendingByShipper(ctx, q, cmd.ShipperID)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, q, m); err != nil {
			return err
		}
		for _, p := range eligible {
			l := Link{MissionID: m.ID, ParcelID: p.ID, Status: LinkAssigned}
			if err := s.store.CreateLink(ctx, q, &l); err != nil {
				return err
			}
			m.Links = append(m.Links, l)
		}
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}

	observability.MissionsCreatedTotal.WithLabelValues(string(KindPickup)).Inc()
	return m, nil
}

// CreateDelivery opens a delivery mission over an explicit, ordered parcel
// list. Assignment is all-or-nothing: any missing or already-assigned parcel
// aborts the whole batch before anything commits.
func (s *Service) CreateDelivery(ctx context.Context, cmd DeliveryCommand) (*Mission, error) {
	if cmd.DriverID == "" {
		return nil, ErrInvalidDriver
	}
	if cmd.WarehouseID == "" || len(cmd.ParcelIDs) == 0 {
		return nil, ErrBadRequest
	}

	m := &Mission{
		ID:          types.ID(uuid.NewString()),
		Number:      newMissionNumber(KindDelivery),
		Kind:        KindDelivery,
		DriverID:    cmd.DriverID,
		WarehouseID: &cmd.WarehouseID,
		Status:      StatusPending,
		ScheduledAt: cmd.ScheduledAt,
		Notes:       cmd.Notes,
		CreatedAt:   time.Now(),
	}

	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		if err := s.store.Create(ctx, q, m); err != nil {
			return err
		}
		for i, parcelID := range cmd.ParcelIDs {
			p, err := s.parcels.GetForUpdate(ctx, q, parcelID)
			if errors.Is(err, parcel.ErrNotFound) {
				return ErrParcelNotFound
			}
			if err != nil {
				return err
			}

			// The row lock serializes concurrent batches on this instance;
			// the partial unique index below catches races across instances.
			open, err := s.store.HasOpenLink(ctx, q, p.ID)
			if err != nil {
				return err
			}
			if open {
				return ErrParcelAssigned
			}

			// Codes are generated once per link and never reused: the link
			// closure clears them from the parcel.
			if err := s.parcels.SetDeliveryCodes(ctx, q, p.ID, codes.Generate(s.codeLen), codes.Generate(s.codeLen)); err != nil {
				return err
			}

			if p.Status != parcel.StatusInTransit {
				_, err = s.parcels.Transition(ctx, q, parcel.TransitionCommand{
					ParcelID:  p.ID,
					Target:    parcel.StatusInTransit,
					Actor:     cmd.Actor,
					MissionID: &m.ID,
					Note:      "assigned to delivery mission " + m.Number,
				})
				if err != nil {
					return err
				}
			}

			l := Link{MissionID: m.ID, ParcelID: p.ID, SequenceOrder: i + 1, Status: LinkAssigned}
			if err := s.store.CreateLink(ctx, q, &l); err != nil {
				return err
			}
			m.Links = append(m.Links, l)
		}
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	s.parcels.InvalidateHistory(ctx, cmd.ParcelIDs...)

	observability.MissionsCreatedTotal.WithLabelValues(string(KindDelivery)).Inc()
	return m, nil
}

// VerifyDelivery decides one delivery attempt. The submitted code selects the
// outcome: the success code marks the parcel delivered, the failure code
// sends it back to the depot. Anything else changes nothing and may be
// retried. Decide-and-write is one transaction.
func (s *Service) VerifyDelivery(ctx context.Context, cmd VerifyCommand) (Outcome, error) {
	var outcome Outcome

	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		m, err := s.store.GetForUpdate(ctx, q, cmd.MissionID)
		if err != nil {
			return err
		}
		if m.Kind != KindDelivery {
			return ErrInvalidState
		}
		if err := s.requireDriver(m, cmd.Actor); err != nil {
			return err
		}

		l, err := s.store.GetLinkForUpdate(ctx, q, cmd.MissionID, cmd.ParcelID)
		if err != nil {
			return err
		}
		if !l.Open() {
			return ErrLinkClosed
		}

		p, err := s.parcels.GetForUpdate(ctx, q, cmd.ParcelID)
		if err != nil {
			return err
		}

		var target parcel.Status
		var linkStatus LinkStatus
		var note string
		switch {
		case p.SuccessCode != nil && cmd.Code == *p.SuccessCode:
			outcome = OutcomeDelivered
			target = parcel.StatusDelivered
			linkStatus = LinkCompleted
			note = "delivered"
		case p.FailureCode != nil && cmd.Code == *p.FailureCode:
			outcome = OutcomeReturnedToDepot
			target = parcel.StatusReturnToWarehouse
			linkStatus = LinkFailed
			note = "returned to depot"
		default:
			return ErrInvalidCode
		}

		// First verified parcel starts the mission implicitly.
		if m.Status == StatusPending {
			if err := s.advance(ctx, q, m, StatusInProgress); err != nil {
				return err
			}
		}

		_, err = s.parcels.Transition(ctx, q, parcel.TransitionCommand{
			ParcelID:  p.ID,
			Target:    target,
			Actor:     cmd.Actor,
			MissionID: &m.ID,
			Note:      note,
		})
		if err != nil {
			return err
		}

		ok, err := s.store.CloseLink(ctx, q, m.ID, p.ID, linkStatus)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLinkClosed
		}
		if err := s.parcels.ClearDeliveryCodes(ctx, q, p.ID); err != nil {
			return err
		}

		// Closing the last link completes the mission in the same unit.
		open, err := s.store.CountOpenLinks(ctx, q, m.ID)
		if err != nil {
			return err
		}
		if open == 0 {
			return s.advance(ctx, q, m, StatusCompleted)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			observability.VerificationsTotal.WithLabelValues("invalid_code").Inc()
		}
		return "", mapConflict(err)
	}
	s.parcels.InvalidateHistory(ctx, cmd.ParcelID)

	observability.VerificationsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

// Accept is the driver claiming a pickup mission. Every linked parcel moves
// to ToPickup in the same unit.
func (s *Service) Accept(ctx context.Context, missionID types.ID, actor types.Actor) (*Mission, error) {
	var touched []types.ID
	m, err := s.driverStep(ctx, missionID, actor, KindPickup, StatusAccepted, func(q infra.Querier, m *Mission) error {
		links, err := s.store.ListLinks(ctx, q, m.ID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if !l.Open() {
				continue
			}
			_, err := s.parcels.Transition(ctx, q, parcel.TransitionCommand{
				ParcelID:  l.ParcelID,
				Target:    parcel.StatusToPickup,
				Actor:     actor,
				MissionID: &m.ID,
				Note:      "pickup mission accepted",
			})
			if err != nil {
				return err
			}
			touched = append(touched, l.ParcelID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.parcels.InvalidateHistory(ctx, touched...)
	return m, nil
}

// Refuse rejects a pending pickup mission and releases its parcels.
func (s *Service) Refuse(ctx context.Context, missionID types.ID, actor types.Actor) (*Mission, error) {
	return s.driverStep(ctx, missionID, actor, KindPickup, StatusRefused, func(q infra.Querier, m *Mission) error {
		return s.failOpenLinks(ctx, q, m)
	})
}

// Start marks the driver as on the road: a pickup mission after acceptance,
// a delivery mission straight from pending.
func (s *Service) Start(ctx context.Context, missionID types.ID, actor types.Actor) (*Mission, error) {
	return s.driverStep(ctx, missionID, actor, "", StatusInProgress, nil)
}

// ScanParcel records one collected parcel during a pickup round: the parcel
// moves to PickedUp and its link closes as completed.
func (s *Service) ScanParcel(ctx context.Context, missionID, parcelID types.ID, actor types.Actor) error {
	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		m, err := s.store.GetForUpdate(ctx, q, missionID)
		if err != nil {
			return err
		}
		if m.Kind != KindPickup || m.Status != StatusInProgress {
			return ErrInvalidState
		}
		if err := s.requireDriver(m, actor); err != nil {
			return err
		}

		l, err := s.store.GetLinkForUpdate(ctx, q, missionID, parcelID)
		if err != nil {
			return err
		}
		if !l.Open() {
			return ErrLinkClosed
		}

		_, err = s.parcels.Transition(ctx, q, parcel.TransitionCommand{
			ParcelID:  parcelID,
			Target:    parcel.StatusPickedUp,
			Actor:     actor,
			MissionID: &m.ID,
			Note:      "collected from shipper",
		})
		if err != nil {
			return err
		}

		ok, err := s.store.CloseLink(ctx, q, missionID, parcelID, LinkCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLinkClosed
		}
		return nil
	})
	if err != nil {
		return mapConflict(err)
	}
	s.parcels.InvalidateHistory(ctx, parcelID)
	return nil
}

// CompletePickup closes a pickup round. The driver proves closure with the
// mission-level security code; parcels never scanned fail their links.
func (s *Service) CompletePickup(ctx context.Context, missionID types.ID, submittedCode string, actor types.Actor) (*Mission, error) {
	return s.driverStep(ctx, missionID, actor, KindPickup, StatusCompleted, func(q infra.Querier, m *Mission) error {
		if m.SecurityCode == nil || submittedCode != *m.SecurityCode {
			return ErrInvalidCode
		}
		return s.failOpenLinks(ctx, q, m)
	})
}

// Cancel administratively aborts a delivery mission: open links fail and
// in-transit parcels head back to the warehouse.
func (s *Service) Cancel(ctx context.Context, missionID types.ID, actor types.Actor) (*Mission, error) {
	if actor.Role != types.RoleAdmin && actor.Role != types.RoleDispatcher {
		return nil, ErrNotAllowed
	}

	var out *Mission
	var touched []types.ID
	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		m, err := s.store.GetForUpdate(ctx, q, missionID)
		if err != nil {
			return err
		}
		if m.Kind != KindDelivery {
			return ErrInvalidState
		}
		if !CanTransition(m.Kind, m.Status, StatusCancelled) {
			return ErrInvalidState
		}

		links, err := s.store.ListLinks(ctx, q, m.ID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if !l.Open() {
				continue
			}
			p, err := s.parcels.GetForUpdate(ctx, q, l.ParcelID)
			if err != nil {
				return err
			}
			if p.Status == parcel.StatusInTransit {
				_, err = s.parcels.Transition(ctx, q, parcel.TransitionCommand{
					ParcelID:  p.ID,
					Target:    parcel.StatusReturnToWarehouse,
					Actor:     actor,
					MissionID: &m.ID,
					Note:      "mission cancelled",
				})
				if err != nil {
					return err
				}
				touched = append(touched, p.ID)
			}
			if _, err := s.store.CloseLink(ctx, q, m.ID, l.ParcelID, LinkFailed); err != nil {
				return err
			}
			if err := s.parcels.ClearDeliveryCodes(ctx, q, l.ParcelID); err != nil {
				return err
			}
		}

		if err := s.advance(ctx, q, m, StatusCancelled); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	s.parcels.InvalidateHistory(ctx, touched...)
	return out, nil
}

// SecurityCode returns the mission-level code of a pickup mission, shown to
// the shipper so they can authorize the round's closure.
func (s *Service) SecurityCode(ctx context.Context, missionID types.ID) (string, error) {
	m, err := s.store.Get(ctx, missionID)
	if err != nil {
		return "", err
	}
	if m.Kind != KindPickup || m.SecurityCode == nil {
		return "", ErrNotFound
	}
	return *m.SecurityCode, nil
}

func (s *Service) Get(ctx context.Context, missionID types.ID) (*Mission, error) {
	return s.store.Get(ctx, missionID)
}

// driverStep runs one mission status advance initiated by its driver, with an
// optional extra step inside the same transaction. Empty kind accepts both.
func (s *Service) driverStep(ctx context.Context, missionID types.ID, actor types.Actor, kind Kind, to Status, extra func(q infra.Querier, m *Mission) error) (*Mission, error) {
	var out *Mission
	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		m, err := s.store.GetForUpdate(ctx, q, missionID)
		if err != nil {
			return err
		}
		if kind != "" && m.Kind != kind {
			return ErrInvalidState
		}
		if !CanTransition(m.Kind, m.Status, to) {
			return ErrInvalidState
		}
		if err := s.requireDriver(m, actor); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(q, m); err != nil {
				return err
			}
		}
		if err := s.advance(ctx, q, m, to); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return out, nil
}

func (s *Service) advance(ctx context.Context, q infra.Querier, m *Mission, to Status) error {
	if !CanTransition(m.Kind, m.Status, to) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, q, m.ID, m.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	m.Status = to
	return nil
}

func (s *Service) requireDriver(m *Mission, actor types.Actor) error {
	if actor.Role == types.RoleDriver && actor.ID != m.DriverID {
		return ErrInvalidDriver
	}
	return nil
}

func (s *Service) failOpenLinks(ctx context.Context, q infra.Querier, m *Mission) error {
	links, err := s.store.ListLinks(ctx, q, m.ID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if !l.Open() {
			continue
		}
		if _, err := s.store.CloseLink(ctx, q, m.ID, l.ParcelID, LinkFailed); err != nil {
			return err
		}
	}
	return nil
}

// mapConflict folds storage-level concurrency failures into the module's
// retryable conflict error.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	if infra.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func newMissionNumber(kind Kind) string {
	prefix := "LIV"
	if kind == KindPickup {
		prefix = "PIK"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), codes.Generate(4))
}
