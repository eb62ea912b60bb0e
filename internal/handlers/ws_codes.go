package handlers

// Custom websocket close codes, more specific than the standard set.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidUserError     = 3002 // Authenticated user no longer exists in the store.
	InvalidRoomCodeError = 3003 // Target room in the WS URL does not exist or is malformed.
	RoomMismatchError    = 3004 // Session token is bound to a different room.
)
