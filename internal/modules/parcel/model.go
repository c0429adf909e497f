// README: Parcel aggregate and status definitions.
package parcel

import (
	"time"

	"depot/internal/types"
)

type Status string

const (
	StatusPending              Status = "pending"
	StatusToPickup             Status = "to_pickup"
	StatusPickedUp             Status = "picked_up"
	StatusAtWarehouse          Status = "at_warehouse"
	StatusInTransit            Status = "in_transit"
	StatusReturnToWarehouse    Status = "return_to_warehouse"
	StatusDelivered            Status = "delivered"
	StatusDeliveredPaid        Status = "delivered_paid"
	StatusDefinitiveReturn     Status = "definitive_return"
	StatusReturnToClientAgency Status = "return_to_client_agency"
	StatusReturnToSender       Status = "return_to_sender"
	StatusReturnInTransit      Status = "return_in_transit"
	StatusReturnReceived       Status = "return_received"
)

type Parcel struct {
	ID               types.ID
	TrackingNumber   string
	Status           Status
	ShipperID        types.ID
	WarehouseID      *types.ID
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        types.Money
	SuccessCode      *string
	FailureCode      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllowedTransitions represents the parcel lifecycle as code. The return
// pipeline feeds failed deliveries back through the depot to the shipper's
// agency or the sender.
var AllowedTransitions = map[Status][]Status{
	StatusPending:              {StatusToPickup},
	StatusToPickup:             {StatusPickedUp},
	StatusPickedUp:             {StatusAtWarehouse},
	StatusAtWarehouse:          {StatusInTransit},
	StatusInTransit:            {StatusDelivered, StatusReturnToWarehouse},
	StatusDelivered:            {StatusDeliveredPaid},
	StatusReturnToWarehouse:    {StatusInTransit, StatusReturnToClientAgency, StatusReturnToSender},
	StatusReturnToClientAgency: {StatusReturnInTransit},
	StatusReturnToSender:       {StatusReturnInTransit},
	StatusReturnInTransit:      {StatusReturnReceived},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusToPickup, StatusPickedUp, StatusAtWarehouse,
		StatusInTransit, StatusReturnToWarehouse, StatusDelivered,
		StatusDeliveredPaid, StatusDefinitiveReturn, StatusReturnToClientAgency,
		StatusReturnToSender, StatusReturnInTransit, StatusReturnReceived:
		return true
	}
	return false
}

// Terminal statuses have no outgoing edges.
func (s Status) Terminal() bool {
	return len(AllowedTransitions[s]) == 0 && s.Valid()
}
