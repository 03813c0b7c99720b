package chat

import "time"

// Role identifies who authored a chat message.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleSystem   Role = "system"
)

// Message mirrors the chat_messages table. IssueID is null for messages
// created before their issue existed; the backfill claims them later.
// Once set, an issue reference is never reassigned.
type Message struct {
	ID         string
	IssueID    *string
	PropertyID string
	TenantID   string
	Role       Role
	Content    string
	CreatedAt  time.Time
}
