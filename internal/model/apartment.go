package model

import "time"

type ApartmentStatus string

const (
	ApartmentVacant   ApartmentStatus = "vacant"
	ApartmentOccupied ApartmentStatus = "occupied"
)

// Apartment mirrors the `apartments` table. (Number, Building) is unique.
type Apartment struct {
	ID                  uint64          `json:"_id"`
	Number              string          `json:"number"`
	Building            string          `json:"building"`
	TenantID            *uint64         `json:"tenantId"`
	OwnerID             *uint64         `json:"ownerId"`
	Rent                float64         `json:"rent"`
	Status              ApartmentStatus `json:"status"`
	Area                float64         `json:"area"`
	Amenities           []string        `json:"amenities"`
	LastMaintenanceDate *time.Time      `json:"lastMaintenanceDate"`
	SocietyName         string          `json:"societyName"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}
