// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room websocket handler. These
// give clients a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Credential cookie was missing, invalid, or incomplete.
	InvalidRoomIDError    = 3002 // Credential references a room that no longer exists.
)
