// internal/session/registry_test.go
package session

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidblitz/bidblitz/internal/auction"
	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/catalog"
	"github.com/bidblitz/bidblitz/internal/room"
)

func newTestRegistry(t *testing.T) (*Registry, *auth.Issuer) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret", "bidblitz.com")
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	reg := NewRegistry(issuer, logger, func() *auction.Auction {
		a := auction.New([]catalog.Item{
			{Name: "A", Category: "Marquee", BasePrice: decimal.RequireFromString("0.5")},
		}, []string{"Marquee"}, 20)
		a.TickInterval = time.Hour
		return a
	})
	return reg, issuer
}

func TestCreateRoomIssuesLeaderCredential(t *testing.T) {
	reg, issuer := newTestRegistry(t)

	m, err := reg.CreateRoom(nil)
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Len(t, m.RoomID, 8)
	assert.Equal(t, room.RoleLeader, m.Role)
	assert.NotEmpty(t, m.Username)

	claims, err := issuer.VerifyToken(m.Token)
	require.NoError(t, err)
	assert.Equal(t, m.Username, claims.Username)
	assert.Equal(t, m.RoomID, claims.RoomID)
	assert.Equal(t, room.RoleLeader, claims.Role)

	_, ok := reg.Get(m.RoomID)
	assert.True(t, ok)
}

func TestOneActiveRoomGuard(t *testing.T) {
	reg, _ := newTestRegistry(t)

	first, err := reg.CreateRoom(nil)
	require.NoError(t, err)

	existing := &auth.Claims{
		Username: first.Username,
		RoomID:   first.RoomID,
		Role:     first.Role,
	}

	again, err := reg.CreateRoom(existing)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.RoomID, again.RoomID)
	assert.Equal(t, first.Username, again.Username)
	assert.Contains(t, again.Message, "another auction")

	joined, err := reg.JoinRoom(first.RoomID, existing)
	require.NoError(t, err)
	assert.False(t, joined.Created)
	assert.Equal(t, first.Username, joined.Username)
}

func TestJoinRoom(t *testing.T) {
	reg, issuer := newTestRegistry(t)
	created, err := reg.CreateRoom(nil)
	require.NoError(t, err)

	m, err := reg.JoinRoom(created.RoomID, nil)
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, created.RoomID, m.RoomID)
	assert.Equal(t, room.RolePlayer, m.Role)

	claims, err := issuer.VerifyToken(m.Token)
	require.NoError(t, err)
	assert.Equal(t, room.RolePlayer, claims.Role)
}

func TestJoinRoomNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.JoinRoom("nosuchrm", nil)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLastDisconnectRemovesRoomFromRegistry(t *testing.T) {
	reg, _ := newTestRegistry(t)
	m, err := reg.CreateRoom(nil)
	require.NoError(t, err)

	rm, ok := reg.Get(m.RoomID)
	require.True(t, ok)

	conn := room.NewConn(func() {})
	require.True(t, rm.Admit(conn, room.Participant{Username: m.Username, Role: m.Role}))
	rm.Remove(conn.ID)

	_, ok = reg.Get(m.RoomID)
	assert.False(t, ok, "empty room should be gone from the registry")
}

func TestGenerateRoomID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRoomID()
		assert.Len(t, id, 8)
		for _, ch := range id {
			assert.True(t, strings.ContainsRune(roomIDChars, ch))
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 90, "ids should be effectively unique")
}

func TestGenerateUsername(t *testing.T) {
	name := GenerateUsername()
	assert.Contains(t, name, " ")
}
