// internal/session/registry.go
package session

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bidblitz/bidblitz/internal/auction"
	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/room"
)

// ErrRoomNotFound is returned when a room id does not resolve to a live room.
var ErrRoomNotFound = errors.New("room not found")

// Membership is the outcome of a create or join request: the identity the
// requester holds in the room plus the credential encoding it. Token is
// empty when an existing membership was returned instead of a new one.
type Membership struct {
	RoomID   string `json:"room-id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Message  string `json:"message"`
	Token    string `json:"-"`
	Created  bool   `json:"-"`
}

// Registry is the process-wide map from room id to Room. Its lock serializes
// only the map itself; it is never held while waiting on a room's internal
// state, so one busy room cannot block the others.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room.Room

	issuer    *auth.Issuer
	logger    *logrus.Logger
	newEngine func() *auction.Auction
}

// NewRegistry builds a registry. newEngine is called once per created room
// to produce a fresh auction engine over the loaded catalog.
func NewRegistry(issuer *auth.Issuer, logger *logrus.Logger, newEngine func() *auction.Auction) *Registry {
	return &Registry{
		rooms:     make(map[string]*room.Room),
		issuer:    issuer,
		logger:    logger,
		newEngine: newEngine,
	}
}

// CreateRoom allocates a room with a fresh id and makes the requester its
// leader. If the requester's existing credential still references a live
// room, that membership is returned instead of creating a second one.
func (reg *Registry) CreateRoom(existing *auth.Claims) (Membership, error) {
	if m, ok := reg.existingMembership(existing); ok {
		return m, nil
	}

	id := reg.allocateRoomID()
	username := GenerateUsername()

	token, err := reg.issuer.CreateToken(auth.Claims{
		Username: username,
		RoomID:   id,
		Role:     room.RoleLeader,
	})
	if err != nil {
		return Membership{}, err
	}

	rm := room.New(id, reg.newEngine(), reg.logger)
	rm.OnEmpty = reg.Delete
	rm.CredentialFn = func(p room.Participant) (string, error) {
		return reg.issuer.CreateToken(auth.Claims{
			Username: p.Username,
			RoomID:   id,
			Role:     p.Role,
		})
	}

	reg.mu.Lock()
	reg.rooms[id] = rm
	reg.mu.Unlock()

	reg.logger.WithFields(logrus.Fields{
		"room": id, "username": username,
	}).Info("room created")

	return Membership{
		RoomID:   id,
		Username: username,
		Role:     room.RoleLeader,
		Message:  "Room created!",
		Token:    token,
		Created:  true,
	}, nil
}

// JoinRoom allocates a player identity in an existing room. The same
// one-active-room guard applies as for CreateRoom.
func (reg *Registry) JoinRoom(roomID string, existing *auth.Claims) (Membership, error) {
	if m, ok := reg.existingMembership(existing); ok {
		return m, nil
	}

	if _, ok := reg.Get(roomID); !ok {
		return Membership{}, ErrRoomNotFound
	}

	username := GenerateUsername()
	token, err := reg.issuer.CreateToken(auth.Claims{
		Username: username,
		RoomID:   roomID,
		Role:     room.RolePlayer,
	})
	if err != nil {
		return Membership{}, err
	}

	return Membership{
		RoomID:   roomID,
		Username: username,
		Role:     room.RolePlayer,
		Message:  "Welcome to the auction!",
		Token:    token,
		Created:  true,
	}, nil
}

// Get resolves a room id.
func (reg *Registry) Get(roomID string) (*room.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rm, ok := reg.rooms[roomID]
	return rm, ok
}

// Delete removes a room entry. The room itself is torn down by its own
// last-disconnect path.
func (reg *Registry) Delete(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
}

// existingMembership enforces one active room membership per identity: a
// credential referencing a live room short-circuits create/join.
func (reg *Registry) existingMembership(existing *auth.Claims) (Membership, bool) {
	if existing == nil {
		return Membership{}, false
	}
	if _, ok := reg.Get(existing.RoomID); !ok {
		return Membership{}, false
	}
	return Membership{
		RoomID:   existing.RoomID,
		Username: existing.Username,
		Role:     existing.Role,
		Message:  "Currently participating in another auction!",
	}, true
}

// allocateRoomID generates ids until one is unused. Collisions are rare at
// 8 characters but cheap to retry.
func (reg *Registry) allocateRoomID() string {
	for {
		id := GenerateRoomID()
		reg.mu.Lock()
		_, taken := reg.rooms[id]
		reg.mu.Unlock()
		if !taken {
			return id
		}
	}
}
