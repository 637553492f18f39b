// README: Support chat tests: quota allowance, refunds, history trimming.
package support

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type memQuota struct {
	rows    map[string]int
	refunds int
}

func (m *memQuota) UseToken(ctx context.Context, uid string) (int, error) {
	n, ok := m.rows[uid]
	if !ok || n <= 0 {
		return 0, ErrInsufficientTokens
	}
	m.rows[uid] = n - 1
	return n - 1, nil
}

func (m *memQuota) EnsureUser(ctx context.Context, uid string) error {
	if _, ok := m.rows[uid]; !ok {
		m.rows[uid] = DefaultTokens
	}
	return nil
}

func (m *memQuota) Refund(ctx context.Context, uid string) error {
	m.refunds++
	m.rows[uid]++
	return nil
}

type echoAssistant struct {
	err     error
	history []Turn
}

func (e *echoAssistant) Reply(ctx context.Context, now string, history []Turn, message string) (string, error) {
	e.history = history
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + message, nil
}

func TestChatNewUserGetsAllowance(t *testing.T) {
	quota := &memQuota{rows: map[string]int{}}
	svc := NewService(quota, &echoAssistant{})

	reply, err := svc.Chat(context.Background(), "u1", " how do promo codes work? ", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Text != "echo: how do promo codes work?" || reply.TokensRemaining != DefaultTokens-1 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestChatQuotaExhausted(t *testing.T) {
	quota := &memQuota{rows: map[string]int{"u1": 0}}
	svc := NewService(quota, &echoAssistant{})
	if _, err := svc.Chat(context.Background(), "u1", "hello", nil); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}
}

func TestChatRefundsOnAssistantFailure(t *testing.T) {
	quota := &memQuota{rows: map[string]int{"u1": 5}}
	svc := NewService(quota, &echoAssistant{err: errors.New("quota exceeded upstream")})
	if _, err := svc.Chat(context.Background(), "u1", "hello", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if quota.rows["u1"] != 5 || quota.refunds != 1 {
		t.Fatalf("expected token refunded, got %d left after %d refunds", quota.rows["u1"], quota.refunds)
	}
}

func TestChatValidation(t *testing.T) {
	svc := NewService(&memQuota{rows: map[string]int{}}, &echoAssistant{})
	for _, msg := range []string{"", "   ", strings.Repeat("x", maxMessageLength+1)} {
		if _, err := svc.Chat(context.Background(), "u1", msg, nil); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("message of %d chars: expected ErrBadRequest, got %v", len(msg), err)
		}
	}
	if _, err := NewService(&memQuota{rows: map[string]int{}}, nil).Chat(context.Background(), "u1", "hi", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without assistant, got %v", err)
	}
}

func TestChatTrimsHistory(t *testing.T) {
	assistant := &echoAssistant{}
	svc := NewService(&memQuota{rows: map[string]int{}}, assistant)
	history := make([]Turn, maxHistoryTurns+5)
	for i := range history {
		history[i] = Turn{Role: RoleUser, Text: string(rune('a' + i))}
	}
	if _, err := svc.Chat(context.Background(), "u1", "hi", history); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(assistant.history) != maxHistoryTurns || assistant.history[0].Text != history[5].Text {
		t.Fatalf("expected last %d turns, got %d", maxHistoryTurns, len(assistant.history))
	}
}
