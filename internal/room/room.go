// internal/room/room.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bidblitz/bidblitz/internal/auction"
)

const (
	RoleLeader = "leader"
	RolePlayer = "player"
)

// Participant is a connected identity: display name, role, and the team the
// identity bids for. An empty team means observe-only.
type Participant struct {
	Username string `json:"username"`
	Team     string `json:"team"`
	Role     string `json:"role"`
}

// Conn wraps a single participant's live connection. Messages are pushed to
// OutChan and drained by the transport's write pump; Cancel tears the pumps
// down.
type Conn struct {
	ID      uuid.UUID
	Cancel  context.CancelFunc
	OutChan chan map[string]interface{}
}

// NewConn allocates a connection session with a fresh opaque id.
func NewConn(cancel context.CancelFunc) *Conn {
	return &Conn{
		ID:      uuid.New(),
		Cancel:  cancel,
		OutChan: make(chan map[string]interface{}, 16),
	}
}

// Write pushes a message to the connection's out channel. A slow consumer
// whose buffer is full misses the message rather than stalling the room; the
// periodic snapshot re-synchronizes it.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
	}
}

// WriteError pushes an Error event with a human-readable reason.
func (c *Conn) WriteError(reason string) {
	c.Write(map[string]interface{}{
		"type":    "Error",
		"message": reason,
	})
}

// Room owns one auction engine, the set of live connections, and the
// periodic snapshot broadcast. The mu guards the connection/participant set
// only; the engine guards its own state. Lock order is engine.Mu before mu
// (the engine fires events into broadcast while holding its lock), so no
// room method may call into the engine while holding mu.
type Room struct {
	ID string

	// OnEmpty is invoked after the last connection leaves and the room has
	// been torn down. Typically removes the room from the registry.
	OnEmpty func(roomID string)

	// CredentialFn, when set, issues a refreshed credential for a
	// participant after a name or team change so reconnections carry the
	// new identity.
	CredentialFn func(p Participant) (string, error)

	engine *auction.Auction
	logger *logrus.Logger

	mu           sync.Mutex
	conns        map[uuid.UUID]*Conn
	participants map[uuid.UUID]*Participant
	closed       bool

	stopBroadcast chan struct{}
	broadcastDone chan struct{}
}

// New wires a room around an auction engine and starts the periodic
// broadcast task.
func New(id string, engine *auction.Auction, logger *logrus.Logger) *Room {
	r := &Room{
		ID:            id,
		engine:        engine,
		logger:        logger,
		conns:         make(map[uuid.UUID]*Conn),
		participants:  make(map[uuid.UUID]*Participant),
		stopBroadcast: make(chan struct{}),
		broadcastDone: make(chan struct{}),
	}
	engine.BroadcastFn = r.broadcastEvent
	go r.runBroadcast(r.stopBroadcast, r.broadcastDone)
	return r
}

// Engine exposes the room's auction engine, mainly for tests.
func (r *Room) Engine() *auction.Auction {
	return r.engine
}

// Admit registers a connection under the given identity. If another live
// connection holds the same display name it is evicted first, so a display
// name maps to at most one connection. The joiner receives its team and the
// roster of everyone else; the rest of the room is told someone joined.
func (r *Room) Admit(conn *Conn, p Participant) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}

	var evicted *Conn
	for id, existing := range r.participants {
		if existing.Username == p.Username {
			if p.Team == "" {
				p.Team = existing.Team
			}
			evicted = r.conns[id]
			delete(r.conns, id)
			delete(r.participants, id)
			break
		}
	}

	r.conns[conn.ID] = conn
	r.participants[conn.ID] = &p

	roster := make([]Participant, 0, len(r.participants)-1)
	for id, other := range r.participants {
		if id != conn.ID {
			roster = append(roster, *other)
		}
	}
	r.mu.Unlock()

	if evicted != nil {
		evicted.WriteError("signed in from another connection")
		evicted.Cancel()
		r.logger.WithFields(logrus.Fields{
			"room": r.ID, "username": p.Username,
		}).Info("evicted duplicate connection")
	}

	conn.Write(map[string]interface{}{"type": "YourTeam", "team": p.Team})
	conn.Write(map[string]interface{}{"type": "RosterSnapshot", "list": roster})
	r.broadcastExcept(conn.ID, map[string]interface{}{
		"type":     "ParticipantJoined",
		"username": p.Username,
		"team":     p.Team,
		"role":     p.Role,
	})
	return true
}

// ChangeName updates the calling connection's display name, echoes it back,
// and notifies the rest of the room.
func (r *Room) ChangeName(connID uuid.UUID, newName string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := r.participants[connID]
	oldName := p.Username
	p.Username = newName
	snapshot := *p
	r.mu.Unlock()

	echo := map[string]interface{}{"type": "NameChanged", "username": newName}
	r.attachCredential(echo, snapshot)
	conn.Write(echo)

	r.broadcastExcept(connID, map[string]interface{}{
		"type":        "NameChanged",
		"oldUsername": oldName,
		"newUsername": newName,
	})
}

// ChangeTeam updates the calling connection's team affiliation. An empty
// team leaves the participant as an observer. Team names are not unique;
// several identities may bid for the same team.
func (r *Room) ChangeTeam(connID uuid.UUID, team string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := r.participants[connID]
	p.Team = team
	snapshot := *p
	r.mu.Unlock()

	echo := map[string]interface{}{"type": "YourTeam", "team": team}
	r.attachCredential(echo, snapshot)
	conn.Write(echo)

	r.broadcastExcept(connID, map[string]interface{}{
		"type":     "TeamChanged",
		"username": snapshot.Username,
		"team":     team,
	})
}

// Dispatch routes an inbound auction command from a connection, enforcing
// role and team gates. Violations and state-guard failures produce an Error
// to the caller only; successful commands broadcast through the engine's
// event callback.
func (r *Room) Dispatch(connID uuid.UUID, msgType string, payload map[string]interface{}) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := *r.participants[connID]
	r.mu.Unlock()

	switch msgType {
	case "JoinTeam":
		team, _ := payload["team"].(string)
		if team == "" {
			conn.WriteError("missing team name")
			return
		}
		r.ChangeTeam(connID, team)
	case "LeaveTeam":
		r.ChangeTeam(connID, "")
	case "ChangeName":
		name, _ := payload["username"].(string)
		if name == "" {
			conn.WriteError("missing username")
			return
		}
		r.ChangeName(connID, name)
	case "StartAuction":
		if !r.requireLeader(conn, p) {
			return
		}
		if !r.engine.Start() {
			conn.WriteError("auction cannot be started now")
		}
	case "PauseAuction":
		if !r.requireLeader(conn, p) {
			return
		}
		if !r.engine.Pause() {
			conn.WriteError("auction is not in progress")
		}
	case "ResumeAuction":
		if !r.requireLeader(conn, p) {
			return
		}
		if !r.engine.Resume() {
			conn.WriteError("auction is not paused")
		}
	case "AdvanceItem":
		if !r.requireLeader(conn, p) {
			return
		}
		if !r.engine.AdvanceItem() {
			conn.WriteError("no item is on the block")
		}
	case "ResetAuction":
		if !r.requireLeader(conn, p) {
			return
		}
		if !r.engine.Reset() {
			conn.WriteError("auction cannot be reset")
		}
	case "PlaceBid":
		if p.Team == "" {
			conn.WriteError("pick a team before bidding")
			return
		}
		if !r.engine.PlaceBid(p.Team) {
			conn.WriteError("bidding is closed")
		}
	case "GetState":
		snap := r.engine.Snapshot()
		conn.Write(map[string]interface{}{
			"type":  string(auction.EventAuctionUpdate),
			"state": &snap,
		})
	default:
		conn.WriteError("unknown command: " + msgType)
	}
}

// Remove evicts a connection on disconnect. If the departing identity was
// the leader mid-auction, the auction pauses; if no connections remain, the
// room tears down and OnEmpty fires.
func (r *Room) Remove(connID uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := *r.participants[connID]
	delete(r.conns, connID)
	delete(r.participants, connID)
	// Claim the teardown under mu so a racing Admit cannot register into a
	// room that is about to be deregistered.
	tearDown := len(r.conns) == 0 && !r.closed
	if tearDown {
		r.closed = true
	}
	r.mu.Unlock()

	conn.Cancel()
	r.broadcast(map[string]interface{}{
		"type":     "ParticipantLeft",
		"username": p.Username,
	})

	if p.Role == RoleLeader && r.engine.CurrentStatus() == auction.StatusInProgress {
		r.engine.Pause()
		r.logger.WithField("room", r.ID).Info("leader left, auction paused")
	}

	if tearDown {
		r.stopTasks()
		if r.OnEmpty != nil {
			r.OnEmpty(r.ID)
		}
	}
}

// Size returns the number of live connections.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Close tears the room down regardless of remaining connections.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.stopTasks()
}

// stopTasks stops the broadcast task, joins it, and cancels the auction so
// no background task can touch the room afterwards. The caller must already
// have set closed under mu; stopTasks runs at most once per room.
func (r *Room) stopTasks() {
	close(r.stopBroadcast)
	<-r.broadcastDone
	r.engine.Cancel()
	r.logger.WithField("room", r.ID).Info("room torn down")
}

// requireLeader reports whether p holds the leader role, telling the caller
// off when not.
func (r *Room) requireLeader(conn *Conn, p Participant) bool {
	if p.Role != RoleLeader {
		conn.WriteError("only the leader can do that")
		return false
	}
	return true
}

// attachCredential adds a refreshed token to an echo message when the room
// has a credential issuer wired in.
func (r *Room) attachCredential(msg map[string]interface{}, p Participant) {
	if r.CredentialFn == nil {
		return
	}
	token, err := r.CredentialFn(p)
	if err != nil {
		r.logger.WithError(err).Warn("failed to refresh credential")
		return
	}
	msg["token"] = token
}

// broadcastEvent adapts engine events onto the wire envelope. Registered as
// the engine's BroadcastFn; it must not call back into the engine.
func (r *Room) broadcastEvent(ev auction.Event) {
	msg := map[string]interface{}{"type": string(ev.Type)}
	if ev.Payload != nil {
		msg["payload"] = ev.Payload
	}
	if ev.State != nil {
		msg["state"] = ev.State
	}
	r.broadcast(msg)
}

// broadcast pushes a message to every live connection.
func (r *Room) broadcast(msg map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		conn.Write(msg)
	}
}

// broadcastExcept pushes a message to every live connection but one.
func (r *Room) broadcastExcept(exclude uuid.UUID, msg map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, conn := range r.conns {
		if id != exclude {
			conn.Write(msg)
		}
	}
}

// runBroadcast pushes the auction snapshot to the whole room once per tick
// while the auction is in progress. This keeps every client's countdown in
// sync without a client-side clock.
func (r *Room) runBroadcast(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.engine.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.engine.CurrentStatus() != auction.StatusInProgress {
				continue
			}
			snap := r.engine.Snapshot()
			r.broadcast(map[string]interface{}{
				"type":  string(auction.EventAuctionUpdate),
				"state": &snap,
			})
		}
	}
}
