// README: Mission aggregate, link records, and mission status definitions.
package mission

import (
	"time"

	"depot/internal/types"
)

type Kind string

const (
	KindPickup   Kind = "pickup"
	KindDelivery Kind = "delivery"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRefused    Status = "refused"
	StatusCancelled  Status = "cancelled"
)

// AllowedTransitions represents both mission state flows as code. Pickup
// missions pass through driver acceptance; delivery missions may be cancelled
// administratively from any non-terminal state.
var AllowedTransitions = map[Kind]map[Status][]Status{
	KindPickup: {
		StatusPending:    {StatusAccepted, StatusRefused},
		StatusAccepted:   {StatusInProgress},
		StatusInProgress: {StatusCompleted},
	},
	KindDelivery: {
		StatusPending:    {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
	},
}

func CanTransition(kind Kind, from, to Status) bool {
	for _, s := range AllowedTransitions[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal statuses admit no further transitions for either kind.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRefused || s == StatusCancelled
}

type LinkStatus string

const (
	LinkAssigned  LinkStatus = "assigned"
	LinkCompleted LinkStatus = "completed"
	LinkFailed    LinkStatus = "failed"
)

// Link binds one parcel to one mission. SequenceOrder is 1..N for delivery
// missions; pickup missions treat the set as unordered and store zero.
type Link struct {
	MissionID     types.ID
	ParcelID      types.ID
	SequenceOrder int
	Status        LinkStatus
	CompletedAt   *time.Time
}

func (l *Link) Open() bool { return l.Status == LinkAssigned }

type Mission struct {
	ID           types.ID
	Number       string
	Kind         Kind
	DriverID     types.ID
	WarehouseID  *types.ID
	ShipperID    *types.ID
	Status       Status
	SecurityCode *string
	ScheduledAt  *time.Time
	Notes        string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	Links        []Link
}
