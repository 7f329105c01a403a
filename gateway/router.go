package gateway

// Router fans a logical event out to the sessions that should receive
// it, reading exclusively from a Registry. It performs no I/O beyond
// the registry's own non-blocking channel sends.
type Router struct {
	reg *Registry
}

// NewRouter returns a Router backed by reg.
func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

func (rt *Router) deliver(sessionID, event string, data any) {
	seq, ok := rt.reg.NextSeq(sessionID)
	if !ok {
		return
	}
	ch, ok := rt.reg.SendChan(sessionID)
	if !ok {
		return
	}
	frame := Frame{Op: OpDispatch, T: event, Data: data, S: seq}
	select {
	case ch <- frame:
	default:
		// Buffer full: the session is not draining fast enough to keep
		// up. Drop the frame rather than block the router. The session
		// itself is not disconnected; it stays registered and only this
		// frame is lost.
	}
}

// DispatchToSession sends event to exactly one session.
func (rt *Router) DispatchToSession(sessionID, event string, data any) {
	rt.deliver(sessionID, event, data)
}

// DispatchToUser sends event to every live session of userID.
func (rt *Router) DispatchToUser(userID, event string, data any) {
	for _, sid := range rt.reg.SessionsForUser(userID) {
		rt.deliver(sid, event, data)
	}
}

// BroadcastToServer sends event to every session subscribed to
// serverID, optionally skipping every session belonging to
// excludeUserID (used when the actor already received the update
// through a direct DispatchToUser and would otherwise see an echo).
func (rt *Router) BroadcastToServer(serverID, event string, data any, excludeUserID string) {
	for _, sid := range rt.reg.SessionsForServer(serverID) {
		if excludeUserID != "" {
			if uid, ok := rt.reg.UserOf(sid); ok && uid == excludeUserID {
				continue
			}
		}
		rt.deliver(sid, event, data)
	}
}

// BroadcastToServerFiltered is BroadcastToServer with an additional
// per-user predicate, used by Message Ingest to withhold a dispatch
// from members who can no longer view the channel the message was
// posted in.
func (rt *Router) BroadcastToServerFiltered(serverID, event string, data any, allow func(userID string) bool) {
	for _, sid := range rt.reg.SessionsForServer(serverID) {
		uid, ok := rt.reg.UserOf(sid)
		if !ok || !allow(uid) {
			continue
		}
		rt.deliver(sid, event, data)
	}
}

// DispatchToUsers sends event to every session of every user in
// userIDs, used for direct/group-direct channel routing where there is
// no server-wide subscription to broadcast through.
func (rt *Router) DispatchToUsers(userIDs []string, event string, data any) {
	for _, uid := range userIDs {
		rt.DispatchToUser(uid, event, data)
	}
}
