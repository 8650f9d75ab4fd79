package models

import "strings"

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a raw role name to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	case "":
		return "", missing("role")
	default:
		return "", &ValidationError{Field: "role", Reason: "must be user or assistant"}
	}
}

// ChatTurn is one message in a coaching conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
