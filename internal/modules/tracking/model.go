// README: Append-only tracking event model.
package tracking

import (
	"time"

	"depot/internal/types"
)

// Event records one parcel status change. Statuses are carried as plain
// strings so this package stays a leaf below the parcel module.
type Event struct {
	ID         int64
	ParcelID   types.ID
	FromStatus string
	ToStatus   string
	MissionID  *types.ID
	ActorType  string
	ActorID    *types.ID
	Note       string
	CreatedAt  time.Time
}
