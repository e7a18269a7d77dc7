package model

import "time"

// Announcement mirrors the `announcements` table. Announcements are never
// edited, so only a creation timestamp is kept.
type Announcement struct {
	ID        uint64    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedBy uint64    `json:"createdBy"`
	Important bool      `json:"important"`
	CreatedAt time.Time `json:"createdAt"`
}
