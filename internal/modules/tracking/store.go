// README: Tracking store backed by Postgres with a Redis read-through cache.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"depot/internal/infra"
	"depot/internal/types"
)

const (
	historyKeyPrefix = "tracking:parcel:%s:history"
	// History for active parcels changes every few hours at most; a short TTL
	// keeps the cache honest even if an invalidation is lost.
	historyTTL = 10 * time.Minute
)

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

// Append writes one event through the caller's transaction scope. Events are
// never updated or deleted.
func (s *Store) Append(ctx context.Context, q infra.Querier, e *Event) error {
	err := q.QueryRow(ctx, `
		INSERT INTO tracking_events (
			parcel_id, from_status, to_status, mission_id, actor_type, actor_id, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		string(e.ParcelID),
		e.FromStatus,
		e.ToStatus,
		toStringPtr(e.MissionID),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.Note,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append tracking event: %w", err)
	}

	// Dropping the key here still leaves a window: the event is not committed
	// yet, so a reader landing between this delete and the commit re-populates
	// the cache without it. Workflow owners call Invalidate again after their
	// transaction commits; the short TTL covers a lost delete.
	s.Invalidate(ctx, e.ParcelID)
	return nil
}

// Invalidate drops the cached history for a parcel. Best effort.
func (s *Store) Invalidate(ctx context.Context, parcelID types.ID) {
	if s.redis != nil {
		_ = s.redis.Del(ctx, historyKey(parcelID)).Err()
	}
}

// HistoryFor returns all events for a parcel in chronological order. Reads go
// through the Redis cache when one is configured; a fresh query is issued on
// every miss, no cursor state is retained.
func (s *Store) HistoryFor(ctx context.Context, parcelID types.ID) ([]*Event, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, historyKey(parcelID)).Bytes(); err == nil {
			var events []*Event
			if err := json.Unmarshal(raw, &events); err == nil {
				return events, nil
			}
		}
	}

	events, err := s.queryHistory(ctx, parcelID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil && len(events) > 0 {
		if raw, err := json.Marshal(events); err == nil {
			_ = s.redis.Set(ctx, historyKey(parcelID), raw, historyTTL).Err()
		}
	}
	return events, nil
}

func (s *Store) queryHistory(ctx context.Context, parcelID types.ID) ([]*Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, parcel_id, from_status, to_status, mission_id, actor_type, actor_id, note, created_at
		FROM tracking_events
		WHERE parcel_id = $1
		ORDER BY created_at, id`,
		string(parcelID),
	)
	if err != nil {
		return nil, fmt.Errorf("query tracking history: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var missionID, actorID *string
		err := rows.Scan(
			&e.ID, &e.ParcelID, &e.FromStatus, &e.ToStatus,
			&missionID, &e.ActorType, &actorID, &e.Note, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracking event: %w", err)
		}
		if missionID != nil {
			id := types.ID(*missionID)
			e.MissionID = &id
		}
		if actorID != nil {
			id := types.ID(*actorID)
			e.ActorID = &id
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking events: %w", err)
	}
	return events, nil
}

func historyKey(parcelID types.ID) string {
	return fmt.Sprintf(historyKeyPrefix, string(parcelID))
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
