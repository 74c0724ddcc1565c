package steward

// Role represents the role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior or current message in a conversation.
type Turn struct {
	Role    Role
	Content string
}

// ChatRequest is one end-user question with its conversation history.
type ChatRequest struct {
	UserID  int64
	Message string
	History []Turn
}
