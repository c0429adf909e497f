// README: Mission registry backed by PostgreSQL; mutating methods run in the caller's scope.
package mission

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

func (s *Store) DB() infra.Querier { return s.db }

const missionColumns = `
	id, mission_number, kind, driver_id, warehouse_id, shipper_id,
	status, security_code, scheduled_at, notes, created_at, completed_at`

func (s *Store) Create(ctx context.Context, q infra.Querier, m *Mission) error {
	_, err := q.Exec(ctx, `
		INSERT INTO missions (
			id, mission_number, kind, driver_id, warehouse_id, shipper_id,
			status, security_code, scheduled_at, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(m.ID),
		m.Number,
		string(m.Kind),
		string(m.DriverID),
		toStringPtr(m.WarehouseID),
		toStringPtr(m.ShipperID),
		string(m.Status),
		m.SecurityCode,
		m.ScheduledAt,
		m.Notes,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Mission, error) {
	m, err := s.get(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	links, err := s.ListLinks(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	m.Links = links
	return m, nil
}

// GetForUpdate loads the mission row (without links) with a row lock held for
// the rest of the caller's transaction.
func (s *Store) GetForUpdate(ctx context.Context, q infra.Querier, id types.ID) (*Mission, error) {
	return s.get(ctx, q, id, true)
}

func (s *Store) get(ctx context.Context, q infra.Querier, id types.ID, lock bool) (*Mission, error) {
	query := "SELECT" + missionColumns + " FROM missions WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}

	var m Mission
	var warehouseID, shipperID *string
	err := q.QueryRow(ctx, query, string(id)).Scan(
		&m.ID, &m.Number, &m.Kind, &m.DriverID, &warehouseID, &shipperID,
		&m.Status, &m.SecurityCode, &m.ScheduledAt, &m.Notes, &m.CreatedAt, &m.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load mission: %w", err)
	}
	if warehouseID != nil {
		v := types.ID(*warehouseID)
		m.WarehouseID = &v
	}
	if shipperID != nil {
		v := types.ID(*shipperID)
		m.ShipperID = &v
	}
	return &m, nil
}

// UpdateStatus advances the mission state machine. The status guard makes the
// update a no-op when a concurrent writer got there first. Completion stamps
// completed_at.
func (s *Store) UpdateStatus(ctx context.Context, q infra.Querier, id types.ID, from, to Status) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE missions
		SET status = $1,
		    completed_at = CASE WHEN $1 IN ('completed', 'refused', 'cancelled') THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update mission status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateLink inserts a mission-parcel link. The partial unique index on open
// links turns a second assignment of the same parcel into ErrParcelAssigned,
// regardless of which server instance races us.
func (s *Store) CreateLink(ctx context.Context, q infra.Querier, l *Link) error {
	_, err := q.Exec(ctx, `
		INSERT INTO mission_parcels (mission_id, parcel_id, sequence_order, status)
		VALUES ($1, $2, $3, $4)`,
		string(l.MissionID), string(l.ParcelID), l.SequenceOrder, string(l.Status),
	)
	if infra.IsUniqueViolation(err) {
		return ErrParcelAssigned
	}
	if err != nil {
		return fmt.Errorf("insert mission link: %w", err)
	}
	return nil
}

func (s *Store) GetLinkForUpdate(ctx context.Context, q infra.Querier, missionID, parcelID types.ID) (*Link, error) {
	var l Link
	err := q.QueryRow(ctx, `
		SELECT mission_id, parcel_id, sequence_order, status, completed_at
		FROM mission_parcels
		WHERE mission_id = $1 AND parcel_id = $2
		FOR UPDATE`,
		string(missionID), string(parcelID),
	).Scan(&l.MissionID, &l.ParcelID, &l.SequenceOrder, &l.Status, &l.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load mission link: %w", err)
	}
	return &l, nil
}

// CloseLink resolves an open link as completed or failed. Returns false when
// the link was already closed.
func (s *Store) CloseLink(ctx context.Context, q infra.Querier, missionID, parcelID types.ID, to LinkStatus) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE mission_parcels
		SET status = $1, completed_at = NOW()
		WHERE mission_id = $2 AND parcel_id = $3 AND status = 'assigned'`,
		string(to), string(missionID), string(parcelID),
	)
	if err != nil {
		return false, fmt.Errorf("close mission link: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) HasOpenLink(ctx context.Context, q infra.Querier, parcelID types.ID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM mission_parcels
			WHERE parcel_id = $1 AND status = 'assigned'
		)`, string(parcelID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open link: %w", err)
	}
	return exists, nil
}

func (s *Store) CountOpenLinks(ctx context.Context, q infra.Querier, missionID types.ID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM mission_parcels
		WHERE mission_id = $1 AND status = 'assigned'`,
		string(missionID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open links: %w", err)
	}
	return n, nil
}

func (s *Store) ListLinks(ctx context.Context, q infra.Querier, missionID types.ID) ([]Link, error) {
	rows, err := q.Query(ctx, `
		SELECT mission_id, parcel_id, sequence_order, status, completed_at
		FROM mission_parcels
		WHERE mission_id = $1
		ORDER BY sequence_order, parcel_id`,
		string(missionID),
	)
	if err != nil {
		return nil, fmt.Errorf("list mission links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.MissionID, &l.ParcelID, &l.SequenceOrder, &l.Status, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan mission link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mission links: %w", err)
	}
	return links, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
