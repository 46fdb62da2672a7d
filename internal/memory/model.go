package memory

// Roles for conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one immutable conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
