package messages

import "time"

// Типы событий заказа, публикуемых шлюзом.
const (
	OrderEventCreated   = "created"
	OrderEventUpdated   = "updated"
	OrderEventConfirmed = "confirmed"
	OrderEventDeleted   = "deleted"
)

type OrderEvent struct {
	Type        string `json:"type"`
	OrderID     uint64 `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`

	Status     string `json:"status,omitempty"`
	CustomerID uint64 `json:"customer_id,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
