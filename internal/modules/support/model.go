// README: Support chat quota constants, errors and conversation turns.
package support

import "github.com/pkg/errors"

// DefaultTokens is the number of support messages granted per user per month.
const DefaultTokens = 50

var (
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrBadRequest         = errors.New("bad request")
	ErrUnavailable        = errors.New("support assistant unavailable")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one earlier message of the conversation, replayed to the model.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
