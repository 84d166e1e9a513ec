// internal/handlers/room_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidblitz/bidblitz/internal/auction"
	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/catalog"
	"github.com/bidblitz/bidblitz/internal/session"
)

func newTestHandlers(t *testing.T) (*session.Registry, *auth.Issuer) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret", "bidblitz.com")
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	reg := session.NewRegistry(issuer, logger, func() *auction.Auction {
		a := auction.New([]catalog.Item{
			{Name: "A", Category: "Marquee", BasePrice: decimal.RequireFromString("0.5")},
		}, []string{"Marquee"}, 20)
		a.TickInterval = time.Hour
		return a
	})
	return reg, issuer
}

func tokenCookie(res *http.Response) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestCreateRoomHandler(t *testing.T) {
	reg, issuer := newTestHandlers(t)

	req := httptest.NewRequest("POST", "/create-room", nil)
	w := httptest.NewRecorder()
	CreateRoomHandler(reg, issuer).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var m session.Membership
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Len(t, m.RoomID, 8)
	assert.Equal(t, "leader", m.Role)
	assert.NotEmpty(t, m.Username)

	cookie := tokenCookie(w.Result())
	require.NotNil(t, cookie, "credential cookie must be set")
	assert.True(t, cookie.HttpOnly)
	claims, err := issuer.VerifyToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, m.RoomID, claims.RoomID)

	_, ok := reg.Get(m.RoomID)
	assert.True(t, ok)
}

func TestCreateRoomReturnsExistingMembership(t *testing.T) {
	reg, issuer := newTestHandlers(t)

	req := httptest.NewRequest("POST", "/create-room", nil)
	w := httptest.NewRecorder()
	CreateRoomHandler(reg, issuer).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := tokenCookie(w.Result())
	require.NotNil(t, cookie)

	var first session.Membership
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	req2 := httptest.NewRequest("POST", "/create-room", nil)
	req2.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	CreateRoomHandler(reg, issuer).ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)

	var again session.Membership
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &again))
	assert.Equal(t, first.RoomID, again.RoomID)
	assert.Equal(t, first.Username, again.Username)
	assert.Nil(t, tokenCookie(w2.Result()), "existing membership keeps its cookie")
}

func TestJoinRoomHandler(t *testing.T) {
	reg, issuer := newTestHandlers(t)

	created, err := reg.CreateRoom(nil)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/join-room/"+created.RoomID, nil)
	w := httptest.NewRecorder()
	JoinRoomHandler(reg, issuer).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var m session.Membership
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, created.RoomID, m.RoomID)
	assert.Equal(t, "player", m.Role)
	require.NotNil(t, tokenCookie(w.Result()))
}

func TestJoinRoomNotFound(t *testing.T) {
	reg, issuer := newTestHandlers(t)

	req := httptest.NewRequest("POST", "/join-room/nosuchrm", nil)
	w := httptest.NewRecorder()
	JoinRoomHandler(reg, issuer).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Room does not exist", body["message"])
}

func TestHandlersRejectNonPost(t *testing.T) {
	reg, issuer := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/create-room", nil)
	w := httptest.NewRecorder()
	CreateRoomHandler(reg, issuer).ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest("GET", "/join-room/abc", nil)
	w = httptest.NewRecorder()
	JoinRoomHandler(reg, issuer).ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
