// Package domain contains core domain types for the Confido coaching backend.
package domain

import (
	"strings"
	"time"
)

// Profile is the locally stored view of an externally authenticated user.
type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Email     *string   `json:"email"`
	Provider  *string   `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the email local part, then to "User".
func (p *Profile) DisplayName() string {
	if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
		return *p.FullName
	}
	if p.Email != nil {
		if local, _, ok := strings.Cut(*p.Email, "@"); ok && local != "" {
			return local
		}
	}
	return "User"
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
