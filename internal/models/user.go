package models

// User is a platform account. Admin users linked to an attendee are organizers
// and are kept out of the matching pool.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	AttendeeID string `json:"attendee_id,omitempty"`
}
