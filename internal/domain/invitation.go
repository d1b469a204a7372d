package domain

import (
	"database/sql"
)

// InvitationStatus 邀请状态
// none → invited → accepted | declined. "none" is the absence of a row.
type InvitationStatus string

const (
	InvitationInvited  InvitationStatus = "invited"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation 邀请领域模型 (invitations 表)
// An accepted invitation is what creates the children membership row; the
// invitation itself never grants access.
type Invitation struct {
	InvitationID string           `db:"invitation_id"`
	BuildingID   string           `db:"building_id"`
	InvitedEmail string           `db:"invited_email"`
	InvitedBy    string           `db:"invited_by"`
	Status       InvitationStatus `db:"status"`
	CreatedAt    sql.NullTime     `db:"created_at"`
	DecidedAt    sql.NullTime     `db:"decided_at"`
}
