// README: Parcel service; the status transition engine and its side effects.
package parcel

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/infra"
	"depot/internal/modules/tracking"
	"depot/internal/observability"
	"depot/internal/types"
)

var (
	ErrNotFound          = errors.New("parcel not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("parcel state conflict")
	ErrBadRequest        = errors.New("bad request")
)

type Service struct {
	db     *pgxpool.Pool
	store  *Store
	events *tracking.Store
}

func NewService(db *pgxpool.Pool, store *Store, events *tracking.Store) *Service {
	return &Service{db: db, store: store, events: events}
}

type TransitionCommand struct {
	ParcelID  types.ID
	Target    Status
	Actor     types.Actor
	MissionID *types.ID
	Note      string
}

// Transition is the single authority for parcel status changes. It runs
// entirely through the caller's Querier: it never opens a transaction of its
// own, so the row update and the tracking event commit (or roll back) with
// whatever else the caller is doing.
//
// Administrators may force DefinitiveReturn from any status; this is the one
// deliberate bypass of the adjacency table.
func (s *Service) Transition(ctx context.Context, q infra.Querier, cmd TransitionCommand) (*Parcel, error) {
	if cmd.ParcelID == "" || !cmd.Target.Valid() {
		return nil, ErrBadRequest
	}

	p, err := s.store.GetForUpdate(ctx, q, cmd.ParcelID)
	if err != nil {
		return nil, err
	}

	override := cmd.Target == StatusDefinitiveReturn && cmd.Actor.CanOverride()
	if !CanTransition(p.Status, cmd.Target) && !override {
		return nil, ErrIllegalTransition
	}

	ok, err := s.store.UpdateStatus(ctx, q, p.ID, p.Status, cmd.Target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	// Every status change produces exactly one tracking event; a failure here
	// aborts the caller's whole unit.
	err = s.events.Append(ctx, q, &tracking.Event{
		ParcelID:   p.ID,
		FromStatus: string(p.Status),
		ToStatus:   string(cmd.Target),
		MissionID:  cmd.MissionID,
		ActorType:  string(cmd.Actor.Role),
		ActorID:    actorIDPtr(cmd.Actor),
		Note:       cmd.Note,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, err
	}

	observability.TransitionsTotal.WithLabelValues(string(cmd.Target)).Inc()

	p.Status = cmd.Target
	return p, nil
}

// UpdateStatus is the standalone form of Transition for callers outside any
// workflow (the administrative status endpoint). It owns its transaction.
func (s *Service) UpdateStatus(ctx context.Context, cmd TransitionCommand) (*Parcel, error) {
	var p *Parcel
	err := infra.WithTx(ctx, s.db, func(q infra.Querier) error {
		var err error
		p, err = s.Transition(ctx, q, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateHistory(ctx, cmd.ParcelID)
	return p, nil
}

// InvalidateHistory drops cached tracking history. Transaction owners call it
// after commit, closing the window where a reader racing the transaction
// could re-cache history without the newest events.
func (s *Service) InvalidateHistory(ctx context.Context, ids ...types.ID) {
	for _, id := range ids {
		s.events.Invalidate(ctx, id)
	}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Parcel, error) {
	return s.store.Get(ctx, id)
}

// Lookup resolves either an internal id or a human-facing tracking number.
func (s *Service) Lookup(ctx context.Context, ref string) (*Parcel, error) {
	p, err := s.store.Get(ctx, types.ID(ref))
	if errors.Is(err, ErrNotFound) {
		return s.store.GetByTracking(ctx, ref)
	}
	return p, err
}

func (s *Service) Create(ctx context.Context, p *Parcel) error {
	if p.ID == "" || p.TrackingNumber == "" || p.ShipperID == "" {
		return ErrBadRequest
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return s.store.Create(ctx, s.db, p)
}

// The following pass-throughs let the mission workflows drive parcels inside
// their own transaction scope.

func (s *Service) GetForUpdate(ctx context.Context, q infra.Querier, id types.ID) (*Parcel, error) {
	return s.store.GetForUpdate(ctx, q, id)
}

func (s *Service) SetDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID, successCode, failureCode string) error {
	return s.store.SetDeliveryCodes(ctx, q, id, successCode, failureCode)
}

func (s *Service) ClearDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID) error {
	return s.store.ClearDeliveryCodes(ctx, q, id)
}

func (s *Service) ListPendingByShipper(ctx context.Context, q infra.Querier, shipperID types.ID) ([]*Parcel, error) {
	return s.store.ListPendingByShipper(ctx, q, shipperID)
}

func actorIDPtr(a types.Actor) *types.ID {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
