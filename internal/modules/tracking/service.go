// README: Tracking service exposes history reads to the HTTP boundary.
package tracking

import (
	"context"

	"depot/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) HistoryFor(ctx context.Context, parcelID types.ID) ([]*Event, error) {
	return s.store.HistoryFor(ctx, parcelID)
}
