package domain

import (
	"regexp"
	"time"
)

type Lead struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Position  string    `json:"position"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes flattens the lead into the substitution map consumed by the
// template renderer.
func (l *Lead) Attributes() map[string]string {
	return map[string]string{
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"email":      l.Email,
		"company":    l.Company,
		"position":   l.Position,
	}
}

type CreateLeadRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Position  string `json:"position,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address. Intentionally
// loose; the transport provider has the final say.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
