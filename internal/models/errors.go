package models

// ErrorResponse is the uniform error envelope of every JSON route.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// LiveEvent is pushed to the chat page over the websocket.
type LiveEvent struct {
	Type    string      `json:"type"` // "typing" | "message" | "phase"
	Payload interface{} `json:"payload,omitempty"`
}
