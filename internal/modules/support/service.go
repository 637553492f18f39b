// README: Support chat service: spends one quota token per message and relays to the assistant.
package support

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	maxMessageLength = 2000
	maxHistoryTurns  = 20
)

type QuotaStore interface {
	UseToken(ctx context.Context, uid string) (int, error)
	EnsureUser(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string) error
}

type Assistant interface {
	Reply(ctx context.Context, now string, history []Turn, message string) (string, error)
}

type Service struct {
	quota     QuotaStore
	assistant Assistant
	now       func() time.Time
}

// NewService accepts a nil assistant; Chat then fails with ErrUnavailable.
func NewService(quota QuotaStore, assistant Assistant) *Service {
	return &Service{quota: quota, assistant: assistant, now: time.Now}
}

type Reply struct {
	Text            string `json:"reply"`
	TokensRemaining int    `json:"tokens_remaining"`
}

// UseToken deducts one token, creating the user's row on first use.
func (s *Service) UseToken(ctx context.Context, uid string) (int, error) {
	remaining, err := s.quota.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return remaining, err
	}
	// the row may be missing: create it and retry once
	if err := s.quota.EnsureUser(ctx, uid); err != nil {
		return 0, err
	}
	return s.quota.UseToken(ctx, uid)
}

func (s *Service) Chat(ctx context.Context, uid, message string, history []Turn) (*Reply, error) {
	message = strings.TrimSpace(message)
	if uid == "" || message == "" || len(message) > maxMessageLength {
		return nil, errors.Wrapf(ErrBadRequest, "message must be 1-%d characters", maxMessageLength)
	}
	if s.assistant == nil {
		return nil, ErrUnavailable
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	remaining, err := s.UseToken(ctx, uid)
	if err != nil {
		return nil, err
	}

	text, err := s.assistant.Reply(ctx, s.now().Format(time.RFC3339), history, message)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("support assistant failed")
		if rerr := s.quota.Refund(ctx, uid); rerr != nil {
			log.Warn().Err(rerr).Str("uid", uid).Msg("refund support token failed")
		} else {
			remaining++
		}
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	return &Reply{Text: text, TokensRemaining: remaining}, nil
}
