package models

import "time"

// Subscription registers an email for notifications about a researcher.
// At most one row exists per (ResearcherName, Email) pair.
type Subscription struct {
	ID             int       `json:"id"`
	ResearcherName string    `json:"researcher_name"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResearcherRequest asks for a researcher to be added to the catalog,
// unique per OpenAlex id.
type ResearcherRequest struct {
	ID             int       `json:"id"`
	OpenalexID     string    `json:"openalex_id"`
	DisplayName    string    `json:"display_name"`
	Institution    string    `json:"institution"`
	WorksCount     int       `json:"works_count"`
	RequesterEmail string    `json:"requester_email"`
	CreatedAt      time.Time `json:"created_at"`
}
