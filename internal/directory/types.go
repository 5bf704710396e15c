package directory

import "time"

// Member is an authoritative membership record. The optional
// PlatformIdentityID ties it to at most one platform identity.
type Member struct {
	ID                 string    `json:"id"`
	Handle             string    `json:"handle"`
	Name               string    `json:"name,omitempty"`
	PlatformIdentityID string    `json:"platform_identity_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Linked reports whether the member is tied to a platform identity.
func (m Member) Linked() bool {
	return m.PlatformIdentityID != ""
}

// LinkStatus is the result of a conditional link write.
type LinkStatus string

const (
	// LinkApplied means the identity was linked by this write.
	LinkApplied LinkStatus = "linked"
	// LinkAlreadyLinked means the member or identity was linked before the
	// write; nothing changed.
	LinkAlreadyLinked LinkStatus = "already_linked"
	// LinkNotFound means the member does not exist.
	LinkNotFound LinkStatus = "not_found"
)

// CreateRequest holds the fields for a new member.
type CreateRequest struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}
