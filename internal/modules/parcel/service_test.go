// README: Transition engine tests against a real database (skip without DEPOT_TEST_DSN).
package parcel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/infra"
	"depot/internal/modules/tracking"
	"depot/internal/types"
)

func setupTestService(t *testing.T) (*Service, *tracking.Store) {
	t.Helper()

	dsn := os.Getenv("DEPOT_TEST_DSN")
	if dsn == "" {
		t.Skip("DEPOT_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()

	sqlDB, err := infra.OpenSQL(dsn)
	if err != nil {
		t.Fatalf("open migration connection: %v", err)
	}
	if err := infra.Migrate(sqlDB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	_ = sqlDB.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, "TRUNCATE TABLE tracking_events, mission_parcels, missions, parcels"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	events := tracking.NewStore(pool, nil)
	return NewService(pool, NewStore(pool), events), events
}

func mustCreateParcel(t *testing.T, svc *Service, status Status) *Parcel {
	t.Helper()
	p := &Parcel{
		ID:             types.ID(fmt.Sprintf("p_%d", time.Now().UnixNano())),
		TrackingNumber: fmt.Sprintf("TN%d", time.Now().UnixNano()),
		Status:         status,
		ShipperID:      "shipper_1",
		CODAmount:      types.Money{Amount: 3500, Currency: "TND"},
	}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create parcel: %v", err)
	}
	return p
}

func TestUpdateStatusHappyPath(t *testing.T) {
	svc, events := setupTestService(t)
	ctx := context.Background()

	p := mustCreateParcel(t, svc, StatusPending)
	actor := types.Actor{ID: "d1", Role: types.RoleDriver}

	steps := []Status{StatusToPickup, StatusPickedUp, StatusAtWarehouse, StatusInTransit, StatusDelivered}
	for _, target := range steps {
		got, err := svc.UpdateStatus(ctx, TransitionCommand{ParcelID: p.ID, Target: target, Actor: actor})
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if got.Status != target {
			t.Fatalf("status = %s, want %s", got.Status, target)
		}
	}

	// History completeness: one event per transition, chronological, with
	// matching from/to pairs.
	history, err := events.HistoryFor(ctx, p.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != len(steps) {
		t.Fatalf("history length = %d, want %d", len(history), len(steps))
	}
	prev := string(StatusPending)
	for i, e := range history {
		if e.FromStatus != prev {
			t.Errorf("event %d from = %s, want %s", i, e.FromStatus, prev)
		}
		if e.ToStatus != string(steps[i]) {
			t.Errorf("event %d to = %s, want %s", i, e.ToStatus, steps[i])
		}
		prev = e.ToStatus
	}
}

func TestUpdateStatusIllegalTransitionLeavesParcelUntouched(t *testing.T) {
	svc, events := setupTestService(t)
	ctx := context.Background()

	p := mustCreateParcel(t, svc, StatusPending)

	_, err := svc.UpdateStatus(ctx, TransitionCommand{
		ParcelID: p.ID,
		Target:   StatusDelivered,
		Actor:    types.Actor{ID: "d1", Role: types.RoleDriver},
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status mutated to %s on failed transition", got.Status)
	}

	history, err := events.HistoryFor(ctx, p.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("failed transition produced %d events", len(history))
	}
}

func TestAdminOverrideToDefinitiveReturn(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	p := mustCreateParcel(t, svc, StatusInTransit)

	// drivers cannot force the escape hatch
	_, err := svc.UpdateStatus(ctx, TransitionCommand{
		ParcelID: p.ID,
		Target:   StatusDefinitiveReturn,
		Actor:    types.Actor{ID: "d1", Role: types.RoleDriver},
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("driver override err = %v, want ErrIllegalTransition", err)
	}

	got, err := svc.UpdateStatus(ctx, TransitionCommand{
		ParcelID: p.ID,
		Target:   StatusDefinitiveReturn,
		Actor:    types.Actor{ID: "admin_1", Role: types.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("admin override: %v", err)
	}
	if got.Status != StatusDefinitiveReturn {
		t.Errorf("status = %s, want %s", got.Status, StatusDefinitiveReturn)
	}
}

func TestUpdateStatusUnknownParcel(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.UpdateStatus(context.Background(), TransitionCommand{
		ParcelID: "ghost",
		Target:   StatusToPickup,
		Actor:    types.Actor{ID: "d1", Role: types.RoleDriver},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
