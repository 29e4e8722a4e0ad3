package shared

// Task types (asynq)
const (
	TypeExpireReservation         = "reservation:expire"
	TypeExpireOverdueReservations = "reservation:expire_overdue"
)

// Queues
const (
	QueueReservation = "reservation"
	QueueDefault     = "default"
)

// ExpireReservationPayload: hết hạn một reservation cụ thể, enqueue lúc
// Create với ProcessAt = expires_at.
type ExpireReservationPayload struct {
	ReservationID string `json:"reservationId"`
}

// ExpireOverduePayload: quét định kỳ các reservation pending đã quá hạn.
type ExpireOverduePayload struct {
	Limit int `json:"limit"`
}
