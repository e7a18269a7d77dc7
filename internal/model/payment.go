package model

import "time"

type PaymentType string

const (
	PaymentRent        PaymentType = "rent"
	PaymentMaintenance PaymentType = "maintenance"
)

// Payment mirrors the `payments` table.
type Payment struct {
	ID          uint64      `json:"_id"`
	ApartmentID uint64      `json:"apartmentId"`
	TenantID    uint64      `json:"tenantId"`
	Amount      float64     `json:"amount"`
	Date        time.Time   `json:"date"`
	Type        PaymentType `json:"type"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
