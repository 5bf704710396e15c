// Package identity holds the read-only platform identity snapshot shared by
// the gateway, telemetry, and reconciliation packages.
package identity

import "time"

// PlatformIdentity is a user account on the external chat platform as seen by
// the gateway. It is a snapshot owned by the platform, not by this service.
type PlatformIdentity struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	JoinedAt    time.Time `json:"joined_at,omitzero"`
	IsBot       bool      `json:"is_bot"`
}

// Name returns the display name when set, falling back to the username.
func (p PlatformIdentity) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
