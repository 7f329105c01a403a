package gateway

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Presence is the status a user has asked to be shown as. Invisible is
// stored here as-is: every call to Presence (and so every broadcast to
// other users) projects it to "offline", while TruePresence returns it
// unprojected for the user's own sessions.
type Presence string

const (
	PresenceOnline    Presence = "online"
	PresenceIdle      Presence = "idle"
	PresenceDND       Presence = "dnd"
	PresenceInvisible Presence = "invisible"
	PresenceOffline   Presence = "offline"
)

// VoiceState is a user's occupancy of one voice room.
type VoiceState struct {
	UserID    string
	ChannelID string
	ServerID  string
	SelfMute  bool
	SelfDeaf  bool
}

// session is the registry's private record of one live connection.
type session struct {
	userID string
	send   chan Frame
	seq    atomic.Uint64
}

// Registry holds all in-memory state about live gateway sessions: who
// is connected, which sessions belong to which user, which sessions are
// subscribed to which server, who occupies which voice room, and what
// presence each connected user has declared. It does no I/O itself —
// Connection feeds it session lifecycle events, Router reads it to
// decide fan-out.
//
// Every index is its own lock-free concurrent map rather than one
// structure behind a single mutex, so a hot path like dispatching to
// one session's channel never contends with an unrelated server's
// broadcast.
type Registry struct {
	sessions       *xsync.Map[string, *session]
	userSessions   *xsync.Map[string, *xsync.Map[string, struct{}]]
	serverSessions *xsync.Map[string, *xsync.Map[string, struct{}]]
	userServers    *xsync.Map[string, *xsync.Map[string, struct{}]]
	voiceByUser    *xsync.Map[string, VoiceState]
	voiceByChannel *xsync.Map[string, *xsync.Map[string, struct{}]]
	presences      *xsync.Map[string, Presence]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:       xsync.NewMap[string, *session](),
		userSessions:   xsync.NewMap[string, *xsync.Map[string, struct{}]](),
		serverSessions: xsync.NewMap[string, *xsync.Map[string, struct{}]](),
		userServers:    xsync.NewMap[string, *xsync.Map[string, struct{}]](),
		voiceByUser:    xsync.NewMap[string, VoiceState](),
		voiceByChannel: xsync.NewMap[string, *xsync.Map[string, struct{}]](),
		presences:      xsync.NewMap[string, Presence](),
	}
}

func setOf(m *xsync.Map[string, struct{}]) []string {
	out := make([]string, 0, m.Size())
	m.Range(func(k string, _ struct{}) bool {
		out = append(out, k)
		return true
	})
	return out
}

// Register adds a new, just-authenticated session for userID and
// returns its outbound send channel. bufferSize bounds how many
// frames may be queued before the session is considered unresponsive.
func (r *Registry) Register(sessionID, userID string, bufferSize int) chan Frame {
	s := &session{userID: userID, send: make(chan Frame, bufferSize)}
	r.sessions.Store(sessionID, s)

	set, _ := r.userSessions.LoadOrStore(userID, xsync.NewMap[string, struct{}]())
	set.Store(sessionID, struct{}{})

	return s.send
}

// Unregister removes a session. It returns true if that was the
// user's last live session (the caller should then clear voice and
// presence).
func (r *Registry) Unregister(sessionID string) (userID string, wasLastSession bool) {
	s, ok := r.sessions.LoadAndDelete(sessionID)
	if !ok {
		return "", false
	}
	userID = s.userID

	if set, ok := r.userSessions.Load(userID); ok {
		set.Delete(sessionID)
		if set.Size() == 0 {
			r.userSessions.Delete(userID)
			wasLastSession = true
		}
	}

	r.serverSessions.Range(func(serverID string, set *xsync.Map[string, struct{}]) bool {
		set.Delete(sessionID)
		return true
	})

	return userID, wasLastSession
}

// SubscribeServers marks sessionID as subscribed to every given server
// ID, so BroadcastToServer reaches it.
func (r *Registry) SubscribeServers(sessionID string, serverIDs []string) {
	for _, sid := range serverIDs {
		set, _ := r.serverSessions.LoadOrStore(sid, xsync.NewMap[string, struct{}]())
		set.Store(sessionID, struct{}{})
	}
}

// SubscribeServerForUser subscribes every live session of userID to
// serverID, used when a user joins a new server while connected.
func (r *Registry) SubscribeServerForUser(userID, serverID string) {
	set, ok := r.userSessions.Load(userID)
	if !ok {
		return
	}
	target, _ := r.serverSessions.LoadOrStore(serverID, xsync.NewMap[string, struct{}]())
	set.Range(func(sessionID string, _ struct{}) bool {
		target.Store(sessionID, struct{}{})
		return true
	})
}

// UnsubscribeServerForUser reverses SubscribeServerForUser, used when a
// user leaves a server while connected.
func (r *Registry) UnsubscribeServerForUser(userID, serverID string) {
	set, ok := r.userSessions.Load(userID)
	if !ok {
		return
	}
	target, ok := r.serverSessions.Load(serverID)
	if !ok {
		return
	}
	set.Range(func(sessionID string, _ struct{}) bool {
		target.Delete(sessionID)
		return true
	})
}

// NextSeq increments and returns the per-session monotonic sequence
// number, 1-based. It returns false if the session no longer exists.
func (r *Registry) NextSeq(sessionID string) (uint64, bool) {
	s, ok := r.sessions.Load(sessionID)
	if !ok {
		return 0, false
	}
	return s.seq.Add(1), true
}

// SendChan returns the outbound channel for a session, if it exists.
func (r *Registry) SendChan(sessionID string) (chan Frame, bool) {
	s, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return s.send, true
}

// SessionsForUser returns every live session ID of userID.
func (r *Registry) SessionsForUser(userID string) []string {
	set, ok := r.userSessions.Load(userID)
	if !ok {
		return nil
	}
	return setOf(set)
}

// SessionsForServer returns every session ID subscribed to serverID.
func (r *Registry) SessionsForServer(serverID string) []string {
	set, ok := r.serverSessions.Load(serverID)
	if !ok {
		return nil
	}
	return setOf(set)
}

// UserOf returns the user ID owning a session.
func (r *Registry) UserOf(sessionID string) (string, bool) {
	s, ok := r.sessions.Load(sessionID)
	if !ok {
		return "", false
	}
	return s.userID, true
}

// AllUserIDs returns every user ID with at least one live session.
func (r *Registry) AllUserIDs() []string {
	out := make([]string, 0)
	r.userSessions.Range(func(userID string, _ *xsync.Map[string, struct{}]) bool {
		out = append(out, userID)
		return true
	})
	return out
}

// IsOnline reports whether userID has at least one live session.
func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.userSessions.Load(userID)
	return ok
}

// SetUserServers caches the server IDs a user belongs to, read at
// Identify time, used by presence broadcast fan-out.
func (r *Registry) SetUserServers(userID string, serverIDs []string) {
	set := xsync.NewMap[string, struct{}]()
	for _, sid := range serverIDs {
		set.Store(sid, struct{}{})
	}
	r.userServers.Store(userID, set)
}

func (r *Registry) UserServerIDs(userID string) []string {
	set, ok := r.userServers.Load(userID)
	if !ok {
		return nil
	}
	return setOf(set)
}

// ClearUser drops the cached server list and presence of a user who
// has fully disconnected. Voice state is not touched here; VoiceLeave
// clears it.
func (r *Registry) ClearUser(userID string) {
	r.userServers.Delete(userID)
	r.presences.Delete(userID)
}

// SetPresence records a user's declared presence.
func (r *Registry) SetPresence(userID string, p Presence) {
	r.presences.Store(userID, p)
}

// Presence returns a user's externally-visible presence: invisible and
// disconnected users both report offline.
func (r *Registry) Presence(userID string) Presence {
	if !r.IsOnline(userID) {
		return PresenceOffline
	}
	p, ok := r.presences.Load(userID)
	if !ok {
		return PresenceOffline
	}
	if p == PresenceInvisible {
		return PresenceOffline
	}
	return p
}

// TruePresence returns a user's actual declared presence, unprojected —
// a user who set themselves invisible sees "invisible" on their own
// sessions even though every other session sees "offline" via Presence.
func (r *Registry) TruePresence(userID string) Presence {
	if !r.IsOnline(userID) {
		return PresenceOffline
	}
	p, ok := r.presences.Load(userID)
	if !ok {
		return PresenceOffline
	}
	return p
}

// VoiceJoin records userID as occupying channelID, implicitly leaving
// any prior room. It returns the previous channel ID, if any.
func (r *Registry) VoiceJoin(state VoiceState) (prevChannelID string, hadPrev bool) {
	if prev, ok := r.voiceByUser.Load(state.UserID); ok {
		prevChannelID, hadPrev = prev.ChannelID, true
		r.voiceLeaveChannel(prev.UserID, prev.ChannelID)
	}
	r.voiceByUser.Store(state.UserID, state)
	set, _ := r.voiceByChannel.LoadOrStore(state.ChannelID, xsync.NewMap[string, struct{}]())
	set.Store(state.UserID, struct{}{})
	return prevChannelID, hadPrev
}

// VoiceLeave removes userID from whatever voice room it occupies and
// returns that room's channel ID, if any.
func (r *Registry) VoiceLeave(userID string) (channelID string, ok bool) {
	state, ok := r.voiceByUser.LoadAndDelete(userID)
	if !ok {
		return "", false
	}
	r.voiceLeaveChannel(userID, state.ChannelID)
	return state.ChannelID, true
}

func (r *Registry) voiceLeaveChannel(userID, channelID string) {
	if set, ok := r.voiceByChannel.Load(channelID); ok {
		set.Delete(userID)
		if set.Size() == 0 {
			r.voiceByChannel.Delete(channelID)
		}
	}
}

// VoiceUpdate mutates the mute/deaf flags of a user's current voice
// state in place. Returns false if the user is not in voice.
func (r *Registry) VoiceUpdate(userID string, selfMute, selfDeaf bool) (VoiceState, bool) {
	state, ok := r.voiceByUser.Load(userID)
	if !ok {
		return VoiceState{}, false
	}
	state.SelfMute = selfMute
	state.SelfDeaf = selfDeaf
	r.voiceByUser.Store(userID, state)
	return state, true
}

// VoiceStateOf returns a user's current voice state, if any.
func (r *Registry) VoiceStateOf(userID string) (VoiceState, bool) {
	return r.voiceByUser.Load(userID)
}

// VoiceStatesInChannel returns every voice state of users currently in
// channelID.
func (r *Registry) VoiceStatesInChannel(channelID string) []VoiceState {
	set, ok := r.voiceByChannel.Load(channelID)
	if !ok {
		return nil
	}
	out := make([]VoiceState, 0, set.Size())
	set.Range(func(userID string, _ struct{}) bool {
		if s, ok := r.voiceByUser.Load(userID); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// AllVoiceStates returns every active voice state across all channels,
// used to sync a newly connected client.
func (r *Registry) AllVoiceStates() []VoiceState {
	out := make([]VoiceState, 0, r.voiceByUser.Size())
	r.voiceByUser.Range(func(_ string, s VoiceState) bool {
		out = append(out, s)
		return true
	})
	return out
}
