// README: Notifier tests: device registration, status fan-out, consumer commits.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

type memTokens struct {
	tokens map[string]DeviceToken
}

func (m *memTokens) Upsert(ctx context.Context, t DeviceToken) error {
	m.tokens[t.Token] = t
	return nil
}

func (m *memTokens) TokensForUsers(ctx context.Context, userIDs []types.ID) ([]DeviceToken, error) {
	var out []DeviceToken
	for _, id := range userIDs {
		for _, t := range m.tokens {
			if t.UserID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *memTokens) Delete(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

type staticPassengers []types.ID

func (p staticPassengers) PassengersForRide(ctx context.Context, rideID types.ID) ([]types.ID, error) {
	return p, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	fail map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.Token] {
		return "", errors.New("fcm unavailable")
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.Token, nil
}

func cancelledEvent() ride.StatusEvent {
	return ride.StatusEvent{
		RideID:      "ride-1",
		DriverID:    "driver-1",
		From:        ride.StatusActive,
		To:          ride.StatusCancelled,
		Origin:      "Pune",
		Destination: "Mumbai",
		DepartAt:    time.Date(2026, 7, 3, 7, 30, 0, 0, time.UTC),
	}
}

func TestRegisterValidation(t *testing.T) {
	tokens := &memTokens{tokens: map[string]DeviceToken{}}
	svc := NewService(tokens, staticPassengers{}, &fakeSender{})

	if err := svc.Register(context.Background(), "u1", "  ", "android"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if err := svc.Register(context.Background(), "u1", "tok-1", " Android "); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := tokens.tokens["tok-1"]; got.UserID != "u1" || got.Platform != "android" {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestNotifyRideStatusSkipsFailedSends(t *testing.T) {
	tokens := &memTokens{tokens: map[string]DeviceToken{
		"a": {Token: "a", UserID: "p1"},
		"b": {Token: "b", UserID: "p2"},
		"c": {Token: "c", UserID: "stranger"},
	}}
	sender := &fakeSender{fail: map[string]bool{"b": true}}
	svc := NewService(tokens, staticPassengers{"p1", "p2"}, sender)

	sent, err := svc.NotifyRideStatus(context.Background(), cancelledEvent())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 1 || len(sender.sent) != 1 {
		t.Fatalf("expected one successful send, got %d", sent)
	}
	msg := sender.sent[0]
	if msg.Token != "a" || msg.Data["status"] != "cancelled" || msg.Data["ride_id"] != "ride-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Notification == nil || msg.Notification.Title != "Ride cancelled" {
		t.Fatalf("unexpected notification: %+v", msg.Notification)
	}
}

func TestNotifyIgnoresActiveStatus(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(&memTokens{tokens: map[string]DeviceToken{"a": {Token: "a", UserID: "p1"}}}, staticPassengers{"p1"}, sender)
	e := cancelledEvent()
	e.To = ride.StatusActive
	sent, err := svc.NotifyRideStatus(context.Background(), e)
	if err != nil || sent != 0 || len(sender.sent) != 0 {
		t.Fatalf("expected no sends, got %d, %v", sent, err)
	}
}

type queueReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (q *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	q.mu.Lock()
	if len(q.msgs) > 0 {
		m := q.msgs[0]
		q.msgs = q.msgs[1:]
		q.mu.Unlock()
		return m, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (q *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range msgs {
		q.committed = append(q.committed, m.Offset)
	}
	return nil
}

type countingNotifier struct {
	mu     sync.Mutex
	events []ride.StatusEvent
}

func (c *countingNotifier) NotifyRideStatus(ctx context.Context, e ride.StatusEvent) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return 1, nil
}

func TestConsumerCommitsGoodAndMalformedMessages(t *testing.T) {
	good, err := json.Marshal(cancelledEvent())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reader := &queueReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("{not json")},
		{Offset: 2, Value: good},
	}}
	notifier := &countingNotifier{}
	c := NewConsumer(reader, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for {
		reader.mu.Lock()
		n := len(reader.committed)
		reader.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 commits, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 1 || notifier.events[0].RideID != "ride-1" {
		t.Fatalf("unexpected notifications: %+v", notifier.events)
	}
}
