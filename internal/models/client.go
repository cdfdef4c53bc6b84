package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// ApiClient represents a staff tool allowed to read submitted bookings
type ApiClient struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	ApiKey      string            `json:"-"` // Never serialize
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	Permissions []string          `json:"permissions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HasPermission checks if client has specific permission
// Supports wildcard permissions like "bookings:*"
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required {
			return true
		}

		// "bookings:*" matches "bookings:read"
		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}

		if perm == "*" {
			return true
		}
	}

	return false
}

// MaskedApiKey returns first 8 characters of API key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}

// Staff permissions
const (
	PermBookingsRead      = "bookings:read"
	PermConsultationsRead = "consultations:read"
	PermFeedRead          = "feed:read"
)

// GenerateApiKey returns a new "sk_" prefixed staff key
func GenerateApiKey() (string, error) {
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(bytes), nil
}
