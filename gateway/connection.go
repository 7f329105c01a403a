package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 90 * time.Second
	maxMessageSize      = 4096
	sendBufferSize      = 256
	heartbeatIntervalMS = 41250
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenValidator authenticates the bearer token carried in an Identify
// frame. Defined here rather than taken from an auth package to avoid
// a gateway -> services -> gateway import cycle (the auth service
// publishes events back through the router).
type TokenValidator interface {
	ValidateAccessToken(token string) (userID string, err error)
}

// ServerLister resolves the servers a user belongs to, read once at
// Identify time to build the Ready payload and seed server
// subscriptions.
type ServerLister interface {
	ListUserServers(ctx context.Context, userID string) ([]ReadyServerItem, error)
}

// Handler upgrades HTTP connections to the gateway's WebSocket
// protocol and drives each one through Connection's state machine.
type Handler struct {
	Registry  *Registry
	Router    *Router
	Tokens    TokenValidator
	Servers   ServerLister
	Logger    *slog.Logger
	NewSessionID func() string
}

// ServeHTTP upgrades the request and blocks until the connection
// closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Connection{
		conn:      conn,
		reg:       h.Registry,
		router:    h.Router,
		tokens:    h.Tokens,
		servers:   h.Servers,
		logger:    h.Logger,
		sessionID: h.NewSessionID(),
	}
	c.run(r.Context())
}

// Connection is the per-socket state machine: Hello is sent
// immediately on upgrade, then the connection waits for Identify
// before it will accept or emit anything else. It owns exactly one
// read goroutine (the one ServeHTTP's caller runs on, blocking until
// close) and spawns exactly one write goroutine.
type Connection struct {
	conn      *websocket.Conn
	reg       *Registry
	router    *Router
	tokens    TokenValidator
	servers   ServerLister
	logger    *slog.Logger
	sessionID string
	userID    string
	send      chan Frame
}

func (c *Connection) run(ctx context.Context) {
	defer c.conn.Close()

	hello := Frame{Op: OpHello, Data: HelloData{HeartbeatIntervalMS: heartbeatIntervalMS}}
	if err := c.writeFrame(hello); err != nil {
		return
	}

	identified := false
	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			break
		}

		switch frame.Op {
		case OpIdentify:
			if identified {
				continue
			}
			if c.handleIdentify(ctx, frame.Data) {
				identified = true
				go c.writePump()
			} else {
				_ = c.writeFrame(Frame{Op: OpInvalidSession, Data: InvalidSessionData{Resumable: false}})
				return
			}
		case OpResume:
			if identified {
				continue
			}
			if c.handleResume(frame.Data) {
				identified = true
				go c.writePump()
			} else {
				_ = c.writeFrame(Frame{Op: OpInvalidSession, Data: InvalidSessionData{Resumable: false}})
				return
			}
		case OpHeartbeat:
			// Tolerated before Identify — a client may start its heartbeat
			// timer before the Identify round trip completes.
			_ = c.writeFrame(Frame{Op: OpHeartbeatAck})
		default:
			if !identified {
				// Any opcode other than Identify/Resume/Heartbeat before
				// authentication is a protocol violation.
				_ = c.writeFrame(Frame{Op: OpInvalidSession, Data: InvalidSessionData{Resumable: false}})
				return
			}
			c.handleAuthenticated(frame)
		}
	}

	c.cleanup()
}

func (c *Connection) handleIdentify(ctx context.Context, raw any) bool {
	var data IdentifyData
	if !decode(raw, &data) {
		return false
	}
	userID, err := c.tokens.ValidateAccessToken(data.Token)
	if err != nil {
		return false
	}
	c.userID = userID

	var readyServers []ReadyServerItem
	var serverIDs []string
	if c.servers != nil {
		if list, err := c.servers.ListUserServers(ctx, userID); err == nil {
			readyServers = list
			for _, s := range list {
				serverIDs = append(serverIDs, s.ID)
			}
		}
	}

	c.send = c.reg.Register(c.sessionID, userID, sendBufferSize)
	c.reg.SubscribeServers(c.sessionID, serverIDs)
	c.reg.SetUserServers(userID, serverIDs)

	status := PresenceOnline
	if data.InitialStatus != "" {
		status = Presence(data.InitialStatus)
	}
	c.reg.SetPresence(userID, status)

	c.router.DispatchToSession(c.sessionID, "READY", ReadyData{
		SessionID: c.sessionID,
		UserID:    userID,
		Servers:   readyServers,
	})
	c.router.DispatchToSession(c.sessionID, EventVoiceStatesSync, c.reg.AllVoiceStates())

	c.broadcastPresence(userID)
	return true
}

func (c *Connection) handleResume(raw any) bool {
	var data ResumeData
	if !decode(raw, &data) {
		return false
	}
	userID, err := c.tokens.ValidateAccessToken(data.Token)
	if err != nil {
		return false
	}
	// There is no durable event backlog to replay from (deferred work
	// is database-backed, not an in-memory log per SPEC_FULL.md §9), so
	// Resume degrades to re-identifying under the previously used
	// session ID rather than replaying missed sequence numbers.
	if _, ok := c.reg.UserOf(data.SessionID); !ok {
		return false
	}
	c.sessionID = data.SessionID
	c.userID = userID
	c.send = c.reg.Register(c.sessionID, userID, sendBufferSize)
	c.router.DispatchToSession(c.sessionID, "READY", ReadyData{SessionID: c.sessionID, UserID: userID})
	return true
}

func (c *Connection) handleAuthenticated(frame Frame) {
	switch frame.Op {
	case OpPresenceUpdate:
		var data PresenceUpdateData
		if decode(frame.Data, &data) {
			c.reg.SetPresence(c.userID, Presence(data.Status))
			c.broadcastPresence(c.userID)
		}
	}
}

func (c *Connection) broadcastPresence(userID string) {
	data := PresenceUpdateData{UserID: userID, Status: string(c.reg.Presence(userID))}
	for _, serverID := range c.reg.UserServerIDs(userID) {
		c.router.BroadcastToServer(serverID, EventPresenceUpdate, data, userID)
	}
	// The user's own sessions see their true declared presence (e.g.
	// "invisible"), not the offline projection everyone else gets.
	selfData := PresenceUpdateData{UserID: userID, Status: string(c.reg.TruePresence(userID))}
	c.router.DispatchToUser(userID, EventPresenceUpdate, selfData)
}

func (c *Connection) cleanup() {
	userID, wasLast := c.reg.Unregister(c.sessionID)
	if userID == "" {
		return
	}
	if wasLast {
		if state, ok := c.reg.VoiceStateOf(userID); ok {
			c.reg.VoiceLeave(userID)
			c.router.BroadcastToServer(state.ServerID, EventVoiceStateUpdate, VoiceStateUpdatePayload{
				UserID: userID,
			}, "")
		}
		c.reg.SetPresence(userID, PresenceOffline)
		c.broadcastPresence(userID)
		c.reg.ClearUser(userID)
	}
	if c.logger != nil {
		c.logger.Info("gateway session closed", "session_id", c.sessionID, "user_id", userID, "last_session", wasLast)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeFrame(frame Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}

func decode(raw any, out any) bool {
	b, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, out) == nil
}
