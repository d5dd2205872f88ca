package domain

import "time"

// Greeting is sent when a chat session starts.
const Greeting = "Azure AI Operator ready. Describe what you want to create."

// FallbackReply is sent for any action the operator does not handle.
const FallbackReply = "I could not understand the request."

// Session is one chat conversation. It carries no state between turns.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn records one handled message for history and audit.
type Turn struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Action    Action `json:"action"`
	// Tag is the action the model emitted when it is not one the operator handles.
	Tag       string    `json:"tag,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply is what the operator sends back for one message.
type Reply struct {
	TurnID  string `json:"turn_id"`
	Action  Action `json:"action"`
	Message string `json:"message"`
}
