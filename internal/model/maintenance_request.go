package model

import "time"

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceDenied     MaintenanceStatus = "denied"
)

// MaintenanceRequest mirrors the `maintenance_requests` table.
type MaintenanceRequest struct {
	ID          uint64            `json:"_id"`
	ApartmentID uint64            `json:"apartmentId"`
	TenantID    uint64            `json:"tenantId"`
	Description string            `json:"description"`
	Status      MaintenanceStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
