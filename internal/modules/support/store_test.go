// README: Postgres chat quota store tests.
package support

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"carpool/internal/testutil"
)

func TestStoreMonthlyReset(t *testing.T) {
	db := testutil.NewTestDB(t, "support_usage")
	store := NewStore(db)
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO support_usage VALUES ('user_reset', 0, '2000-01')"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	remaining, err := svc.UseToken(ctx, "user_reset")
	if err != nil {
		t.Fatalf("use token after month change: %v", err)
	}
	if remaining != DefaultTokens-1 {
		t.Fatalf("expected %d remaining, got %d", DefaultTokens-1, remaining)
	}
}

func TestStoreExhaustedAndNewUser(t *testing.T) {
	db := testutil.NewTestDB(t, "support_usage")
	store := NewStore(db)
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO support_usage (uid, tokens_remaining, last_reset_month) VALUES ('user_zero', 0, TO_CHAR(NOW() AT TIME ZONE 'UTC', 'YYYY-MM'))"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.UseToken(ctx, "user_zero"); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}

	remaining, err := svc.UseToken(ctx, "user_new")
	if err != nil || remaining != DefaultTokens-1 {
		t.Fatalf("new user: remaining=%d err=%v", remaining, err)
	}
	if err := store.Refund(ctx, "user_new"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	var n int
	if err := db.QueryRow(ctx, "SELECT tokens_remaining FROM support_usage WHERE uid = 'user_new'").Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != DefaultTokens {
		t.Fatalf("expected refund back to %d, got %d", DefaultTokens, n)
	}
}
