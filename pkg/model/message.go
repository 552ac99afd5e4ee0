package model

// SystemDirective sets the behavior of the completion model for both chat
// replies and importance ratings
const SystemDirective = "You are a helpful assistant."

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a prompt sent to the completion gateway
type Message struct {
	Role    Role
	Content string
}
