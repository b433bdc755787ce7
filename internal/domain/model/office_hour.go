package model

import "time"

type OfficeHour struct {
	ID        int64  `json:"id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
	CourseID  int64  `json:"course_id"`
	TAID      int64  `json:"ta_id"`
}

// SavedOfficeHour records that a user bookmarked an office hour slot.
// There is at most one per (UserID, OfficeHourID).
type SavedOfficeHour struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	OfficeHourID int64     `json:"oh_id"`
	CreatedAt    time.Time `json:"created_at"`
}
