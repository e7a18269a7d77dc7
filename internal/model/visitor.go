package model

import "time"

type VisitorStatus string

const (
	VisitorUpcoming VisitorStatus = "upcoming"
	VisitorCurrent  VisitorStatus = "current"
	VisitorPast     VisitorStatus = "past"
	VisitorPending  VisitorStatus = "pending"
)

// Visitor mirrors the `visitors` table.
type Visitor struct {
	ID              uint64        `json:"_id"`
	Name            string        `json:"name"`
	Purpose         string        `json:"purpose"`
	Status          VisitorStatus `json:"status"`
	ApartmentID     uint64        `json:"apartmentId"`
	ExpectedAt      time.Time     `json:"expectedAt"`
	ActualEntryAt   *time.Time    `json:"actualEntryAt"`
	ActualExitAt    *time.Time    `json:"actualExitAt"`
	ApprovedBy      *uint64       `json:"approvedBy"`
	ContactNumber   string        `json:"contactNumber"`
	PendingApproval bool          `json:"pendingApproval"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
