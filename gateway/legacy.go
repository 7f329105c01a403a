package gateway

// Event is the op/data pair used by services that only need to
// broadcast a named update, not drive the gateway handshake itself
// (role/category/channel/member/reaction/pin/DM CRUD). It predates
// the numeric-opcode Frame used by Connection; Hub below translates
// one into the other at the door.
type Event struct {
	Op   string
	Data any
}

// Dispatch event names used by the CRUD services that broadcast
// through Hub rather than driving Connection directly.
const (
	OpRoleCreate              = "role_create"
	OpRoleUpdate              = "role_update"
	OpRoleDelete              = "role_delete"
	OpRolesReorder            = "roles_reorder"
	OpCategoryCreate          = "category_create"
	OpCategoryUpdate          = "category_update"
	OpCategoryDelete          = "category_delete"
	OpChannelCreate           = "channel_create"
	OpChannelUpdate           = "channel_update"
	OpChannelDelete           = "channel_delete"
	OpChannelReorder          = "channel_reorder"
	OpChannelPermissionUpdate = "channel_permission_update"
	OpChannelPermissionDelete = "channel_permission_delete"
	OpMemberUpdate            = "member_update"
	OpMemberLeave             = "member_leave"
	OpPresence                = "presence_update"
	OpReactionUpdate          = "reaction_update"
	OpMessagePin              = "message_pin"
	OpMessageUnpin            = "message_unpin"
	OpDMChannelCreate         = "dm_channel_create"
	OpDMMessageCreate         = "dm_message_create"
	OpDMMessageUpdate         = "dm_message_update"
	OpDMMessageDelete         = "dm_message_delete"
	OpDMTypingStart           = "dm_typing_start"
	OpServerUpdate            = "server_update"
	OpVoiceStateUpdate        = "voice_state_update"
	OpVoiceForceMove          = "voice_force_move"
	OpVoiceForceDisconnect    = "voice_force_disconnect"
)

// VoiceStateUpdateBroadcast is the payload of a voice_state_update
// broadcast — richer than gateway's own VoiceStateUpdatePayload because
// VoiceService tracks per-field admin moderation state (server
// mute/deafen) and display data the low-level session registry has no
// reason to know about. Action distinguishes "join"/"leave"/"update" so
// a single event type covers the voice room's full lifecycle.
type VoiceStateUpdateBroadcast struct {
	UserID           string `json:"user_id"`
	ChannelID        string `json:"channel_id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url"`
	IsMuted          bool   `json:"is_muted"`
	IsDeafened       bool   `json:"is_deafened"`
	IsStreaming      bool   `json:"is_streaming"`
	IsServerMuted    bool   `json:"is_server_muted"`
	IsServerDeafened bool   `json:"is_server_deafened"`
	Action           string `json:"action"` // "join" | "leave" | "update"
}

// VoiceForceMoveData is sent to a single user when an admin moves them
// into a different voice channel — the client must rejoin the LiveKit
// room named by ChannelID.
type VoiceForceMoveData struct {
	ChannelID string `json:"channel_id"`
}

// PresenceData mirrors PresenceUpdateData for callers that pre-date
// the Frame-based API.
type PresenceData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// DMTypingStartData is the payload of a dm_typing_start broadcast.
type DMTypingStartData struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DMChannelID string `json:"dm_channel_id"`
}

// EventPublisher is the broadcast surface most CRUD services depend
// on: server-wide, single-user, and multi-user delivery.
type EventPublisher interface {
	BroadcastToAll(Event)
	BroadcastToUser(userID string, e Event)
	BroadcastToUsers(userIDs []string, e Event)
	BroadcastToAllExcept(excludeUserID string, e Event)
}

// Broadcaster is the subset of EventPublisher needed by services that
// only ever broadcast server-wide.
type Broadcaster interface {
	BroadcastToAll(Event)
}

// Hub adapts Registry/Router to the EventPublisher/Broadcaster surface
// for services that address "all connected sessions" rather than one
// server's subscribers — like the donor's Hub it has a single global
// broadcast domain (one server per deployment), so Hub.BroadcastToAll
// fans out to every session of every currently connected user.
type Hub struct {
	reg    *Registry
	router *Router
}

// NewHub returns a Hub backed by reg/router.
func NewHub(reg *Registry, router *Router) *Hub {
	return &Hub{reg: reg, router: router}
}

func (h *Hub) BroadcastToAll(e Event) {
	for _, uid := range h.reg.AllUserIDs() {
		h.router.DispatchToUser(uid, e.Op, e.Data)
	}
}

func (h *Hub) BroadcastToUser(userID string, e Event) {
	h.router.DispatchToUser(userID, e.Op, e.Data)
}

func (h *Hub) BroadcastToUsers(userIDs []string, e Event) {
	h.router.DispatchToUsers(userIDs, e.Op, e.Data)
}

func (h *Hub) BroadcastToAllExcept(excludeUserID string, e Event) {
	for _, uid := range h.reg.AllUserIDs() {
		if uid == excludeUserID {
			continue
		}
		h.router.DispatchToUser(uid, e.Op, e.Data)
	}
}

// GetOnlineUserIDs returns every currently connected user ID.
func (h *Hub) GetOnlineUserIDs() []string {
	return h.reg.AllUserIDs()
}
