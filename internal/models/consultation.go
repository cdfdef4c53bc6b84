package models

import "time"

// ConsultationRequest is a message sent through the contact page
type ConsultationRequest struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	EventDate  string    `json:"event_date,omitempty"`
	Message    string    `json:"message"`
	Newsletter bool      `json:"newsletter"`
	CreatedAt  time.Time `json:"created_at"`
}

// FullName returns the requester's display name
func (c *ConsultationRequest) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Notice is the staff feed summary of a consultation request
func (c *ConsultationRequest) Notice() ConsultationNotice {
	return ConsultationNotice{
		ID:        c.ID,
		Type:      c.Type,
		Name:      c.FullName(),
		Email:     c.Email,
		EventDate: c.EventDate,
		CreatedAt: c.CreatedAt,
	}
}

// ConsultationNotice announces a stored consultation request
type ConsultationNotice struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	EventDate string    `json:"event_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateConsultationRequest is the contact form payload
type CreateConsultationRequest struct {
	Type       string `json:"type"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	EventDate  string `json:"event_date,omitempty"`
	Message    string `json:"message"`
	Newsletter bool   `json:"newsletter"`
}

// ConsultationResponse is the thank-you payload returned after submitting
type ConsultationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Duration  string    `json:"duration"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
