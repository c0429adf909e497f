// README: Parcel store backed by PostgreSQL; mutating methods run in the caller's scope.
package parcel

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/infra"
	"depot/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// DB exposes the pool as a Querier for callers that run outside a transaction.
func (s *Store) DB() infra.Querier { return s.db }

const parcelColumns = `
	id, tracking_number, status, shipper_id, warehouse_id,
	recipient_name, recipient_phone, recipient_address,
	cod_amount, cod_currency, success_code, failure_code,
	created_at, updated_at`

func (s *Store) Create(ctx context.Context, q infra.Querier, p *Parcel) error {
	_, err := q.Exec(ctx, `
		INSERT INTO parcels (
			id, tracking_number, status, shipper_id, warehouse_id,
			recipient_name, recipient_phone, recipient_address,
			cod_amount, cod_currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		string(p.ID),
		p.TrackingNumber,
		string(p.Status),
		string(p.ShipperID),
		toStringPtr(p.WarehouseID),
		p.RecipientName,
		p.RecipientPhone,
		p.RecipientAddress,
		p.CODAmount.Amount,
		p.CODAmount.Currency,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert parcel: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Parcel, error) {
	return s.get(ctx, s.db, "WHERE id = $1", string(id), false)
}

func (s *Store) GetByTracking(ctx context.Context, trackingNumber string) (*Parcel, error) {
	return s.get(ctx, s.db, "WHERE tracking_number = $1", trackingNumber, false)
}

// GetForUpdate loads the parcel with a row lock held for the rest of the
// caller's transaction.
func (s *Store) GetForUpdate(ctx context.Context, q infra.Querier, id types.ID) (*Parcel, error) {
	return s.get(ctx, q, "WHERE id = $1", string(id), true)
}

func (s *Store) get(ctx context.Context, q infra.Querier, where, arg string, lock bool) (*Parcel, error) {
	query := "SELECT" + parcelColumns + " FROM parcels " + where
	if lock {
		query += " FOR UPDATE"
	}
	row := q.QueryRow(ctx, query, arg)

	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load parcel: %w", err)
	}
	return p, nil
}

// UpdateStatus moves the parcel from one status to another. The status guard
// makes the update a no-op when a concurrent writer got there first.
func (s *Store) UpdateStatus(ctx context.Context, q infra.Querier, id types.ID, from, to Status) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE parcels
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update parcel status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID, successCode, failureCode string) error {
	tag, err := q.Exec(ctx, `
		UPDATE parcels
		SET success_code = $1, failure_code = $2, updated_at = NOW()
		WHERE id = $3`,
		successCode, failureCode, string(id),
	)
	if err != nil {
		return fmt.Errorf("set delivery codes: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ClearDeliveryCodes invalidates the per-link codes once the link is closed.
func (s *Store) ClearDeliveryCodes(ctx context.Context, q infra.Querier, id types.ID) error {
	_, err := q.Exec(ctx, `
		UPDATE parcels
		SET success_code = NULL, failure_code = NULL, updated_at = NOW()
		WHERE id = $1`,
		string(id),
	)
	if err != nil {
		return fmt.Errorf("clear delivery codes: %w", err)
	}
	return nil
}

// ListPendingByShipper returns the shipper's parcels awaiting collection that
// are not already promised to an open mission, locked for the caller's
// transaction.
func (s *Store) ListPendingByShipper(ctx context.Context, q infra.Querier, shipperID types.ID) ([]*Parcel, error) {
	rows, err := q.Query(ctx, `
		SELECT`+parcelColumns+`
		FROM parcels
		WHERE shipper_id = $1
		  AND status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM mission_parcels mp
			WHERE mp.parcel_id = parcels.id AND mp.status = 'assigned'
		  )
		ORDER BY created_at
		FOR UPDATE OF parcels`,
		string(shipperID), string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending parcels: %w", err)
	}
	defer rows.Close()

	var out []*Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parcel: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parcels: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (*Parcel, error) {
	var p Parcel
	var warehouseID, successCode, failureCode *string

	err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.Status, &p.ShipperID, &warehouseID,
		&p.RecipientName, &p.RecipientPhone, &p.RecipientAddress,
		&p.CODAmount.Amount, &p.CODAmount.Currency, &successCode, &failureCode,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if warehouseID != nil {
		id := types.ID(*warehouseID)
		p.WarehouseID = &id
	}
	p.SuccessCode = successCode
	p.FailureCode = failureCode
	return &p, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
