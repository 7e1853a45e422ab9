// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	InvalidSessionIDError = 3003 // Target session in the WS URL does not exist or is malformed.
	SlowConsumerError     = 3004 // Client fell behind on events and was dropped.
)
