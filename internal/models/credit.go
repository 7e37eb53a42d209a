package models

// ExpiryState classifies an enrollment's time remaining.
type ExpiryState string

// Possible expiry states.
const (
	ExpiryStateExpired  ExpiryState = "expired"
	ExpiryStateExpiring ExpiryState = "expiring"
	ExpiryStateActive   ExpiryState = "active"
)

// ExpiryStatus carries the classification plus a human-readable day count.
type ExpiryStatus struct {
	Status        ExpiryState `json:"status"`
	RemainingDays int         `json:"remaining_days"`
	Label         string      `json:"label"`
}
