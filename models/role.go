package models

import "time"

// Permission is a bitset of capabilities, stored as a signed 64-bit
// integer so it round-trips through SQLite and JSON without a custom
// marshaler.
//
// Bit positions are gapped rather than sequential: they mirror the
// layout the federation's other implementations already persist, so a
// server migrated from one implementation to another doesn't need a
// permission remap. Check with Has, never with a raw bitwise AND — Has
// also implements the administrator bypass.
type Permission int64

const (
	PermCreateInstantInvite Permission = 1 << 0
	PermKickMembers         Permission = 1 << 1
	PermBanMembers          Permission = 1 << 2
	PermAdministrator       Permission = 1 << 3
	PermManageChannels      Permission = 1 << 4
	PermManageServer        Permission = 1 << 5
	PermAddReactions        Permission = 1 << 6
	PermViewAuditLog        Permission = 1 << 7
	PermViewChannel         Permission = 1 << 10
	PermSendMessages        Permission = 1 << 11
	PermManageMessages      Permission = 1 << 13
	PermEmbedLinks          Permission = 1 << 14
	PermAttachFiles         Permission = 1 << 15
	PermReadMessageHistory  Permission = 1 << 16
	PermMentionEveryone     Permission = 1 << 17
	PermUseExternalEmojis   Permission = 1 << 18
	PermConnect             Permission = 1 << 20
	PermSpeak               Permission = 1 << 21
	PermMuteMembers         Permission = 1 << 22
	PermDeafenMembers       Permission = 1 << 23
	PermMoveMembers         Permission = 1 << 24
	PermChangeNickname      Permission = 1 << 26
	PermManageNicknames     Permission = 1 << 27
	PermManageRoles         Permission = 1 << 28
	PermManageWebhooks      Permission = 1 << 29
	PermManageExpressions   Permission = 1 << 30
	PermManageThreads       Permission = 1 << 34
	PermSendMessagesInThreads Permission = 1 << 38
	PermModerateMembers     Permission = 1 << 40
	PermUseSoundboard       Permission = 1 << 42
	PermManageSoundboard    Permission = 1 << 43
)

// PermAll is every bit this server version knows about, granted to
// server owners and to any member whose role set carries Administrator.
const PermAll Permission = PermCreateInstantInvite | PermKickMembers | PermBanMembers |
	PermAdministrator | PermManageChannels | PermManageServer | PermAddReactions |
	PermViewAuditLog | PermViewChannel | PermSendMessages | PermManageMessages |
	PermEmbedLinks | PermAttachFiles | PermReadMessageHistory | PermMentionEveryone |
	PermUseExternalEmojis | PermConnect | PermSpeak | PermMuteMembers | PermDeafenMembers |
	PermMoveMembers | PermChangeNickname | PermManageNicknames | PermManageRoles |
	PermManageWebhooks | PermManageExpressions | PermManageThreads |
	PermSendMessagesInThreads | PermModerateMembers | PermUseSoundboard | PermManageSoundboard

// DefaultEveryonePermissions is granted to the @everyone role on
// server creation.
const DefaultEveryonePermissions Permission = PermViewChannel | PermSendMessages |
	PermReadMessageHistory | PermAddReactions | PermConnect | PermSpeak |
	PermChangeNickname | PermCreateInstantInvite | PermEmbedLinks | PermAttachFiles |
	PermUseExternalEmojis | PermMentionEveryone | PermUseSoundboard

// Has reports whether p carries perm, with Administrator bypassing
// every other bit.
func (p Permission) Has(perm Permission) bool {
	if p&PermAdministrator != 0 {
		return true
	}
	return p&perm != 0
}

// OwnerRoleID is the fixed ID of the implicit role representing full
// server ownership. It is never persisted as a row; it is attributed
// to a member directly from Server.OwnerID.
const OwnerRoleID = "owner"

// Role is a named, ordered, colored bundle of permissions a member can
// hold within a server.
type Role struct {
	ID          string     `json:"id"`
	ServerID    string     `json:"server_id"`
	Name        string     `json:"name"`
	Color       string     `json:"color"`
	Position    int        `json:"position"`
	Permissions Permission `json:"permissions"`
	Mentionable bool       `json:"mentionable"`
	IsDefault   bool       `json:"is_default"`
	CreatedAt   time.Time  `json:"created_at"`
}
