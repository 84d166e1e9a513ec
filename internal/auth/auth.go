// internal/auth/auth.go
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity tuple carried by every credential.
type Claims struct {
	Username string
	RoomID   string
	Role     string
}

// Issuer signs and verifies HS256 room credentials.
type Issuer struct {
	secret []byte
	issuer string
}

// NewIssuer builds an Issuer for the given shared secret and issuer domain.
func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer}
}

// CreateToken signs a credential encoding the identity tuple.
func (i *Issuer) CreateToken(c Claims) (string, error) {
	claims := jwt.MapClaims{
		"iss":      i.issuer,
		"iat":      time.Now().Unix(),
		"username": c.Username,
		"room-id":  c.RoomID,
		"role":     c.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyToken validates a credential string and returns the identity tuple.
func (i *Issuer) VerifyToken(tokenString string) (Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil {
		return Claims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid jwt claims")
	}
	c := Claims{}
	if c.Username, ok = mc["username"].(string); !ok || c.Username == "" {
		return Claims{}, fmt.Errorf("missing username in jwt")
	}
	if c.RoomID, ok = mc["room-id"].(string); !ok || c.RoomID == "" {
		return Claims{}, fmt.Errorf("missing room-id in jwt")
	}
	if c.Role, ok = mc["role"].(string); !ok || c.Role == "" {
		return Claims{}, fmt.Errorf("missing role in jwt")
	}
	return c, nil
}

// SetCookie writes the credential as the http-only token cookie.
func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads and verifies the token cookie from an HTTP request.
func (i *Issuer) FromRequest(r *http.Request) (Claims, error) {
	cookie, err := r.Cookie("token")
	if err != nil {
		return Claims{}, fmt.Errorf("missing token cookie: %w", err)
	}
	return i.VerifyToken(cookie.Value)
}
