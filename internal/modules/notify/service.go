// README: Push notifications for ride status changes via FCM.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

const maxTokenLength = 4096

var ErrBadRequest = errors.New("bad request")

type TokenStore interface {
	Upsert(ctx context.Context, t DeviceToken) error
	TokensForUsers(ctx context.Context, userIDs []types.ID) ([]DeviceToken, error)
	Delete(ctx context.Context, token string) error
}

// PassengerLister resolves who is booked on a ride.
type PassengerLister interface {
	PassengersForRide(ctx context.Context, rideID types.ID) ([]types.ID, error)
}

// Sender is satisfied by *messaging.Client.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Service struct {
	tokens     TokenStore
	passengers PassengerLister
	sender     Sender
	now        func() time.Time
}

func NewService(tokens TokenStore, passengers PassengerLister, sender Sender) *Service {
	return &Service{tokens: tokens, passengers: passengers, sender: sender, now: time.Now}
}

func (s *Service) Register(ctx context.Context, userID types.ID, token, platform string) error {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" || len(token) > maxTokenLength {
		return errors.Wrap(ErrBadRequest, "user and a valid token are required")
	}
	return s.tokens.Upsert(ctx, DeviceToken{
		Token:     token,
		UserID:    userID,
		Platform:  strings.ToLower(strings.TrimSpace(platform)),
		UpdatedAt: s.now(),
	})
}

// NotifyRideStatus pushes e to every device of every booked passenger and
// returns how many sends succeeded. Individual send failures are logged and
// skipped; tokens FCM reports as unregistered are deleted.
func (s *Service) NotifyRideStatus(ctx context.Context, e ride.StatusEvent) (int, error) {
	title, body, ok := statusText(e)
	if !ok {
		return 0, nil
	}
	passengers, err := s.passengers.PassengersForRide(ctx, e.RideID)
	if err != nil {
		return 0, err
	}
	tokens, err := s.tokens.TokensForUsers(ctx, passengers)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tokens {
		msg := &messaging.Message{
			Token: t.Token,
			Data: map[string]string{
				"type":    "ride_status",
				"ride_id": string(e.RideID),
				"status":  string(e.To),
			},
			Notification: &messaging.Notification{Title: title, Body: body},
			Android:      &messaging.AndroidConfig{Priority: "high"},
		}
		messageID, err := s.sender.Send(ctx, msg)
		if err != nil {
			log.Warn().Err(err).Str("ride_id", e.RideID.String()).Str("user_id", t.UserID.String()).Msg("fcm send failed")
			if messaging.IsUnregistered(err) {
				if err := s.tokens.Delete(ctx, t.Token); err != nil {
					log.Warn().Err(err).Msg("delete stale device token failed")
				}
			}
			continue
		}
		sent++
		log.Debug().Str("ride_id", e.RideID.String()).Str("message_id", messageID).Msg("fcm sent")
	}

	log.Info().
		Str("ride_id", e.RideID.String()).
		Str("status", string(e.To)).
		Int("passengers", len(passengers)).
		Int("sent", sent).
		Msg("ride status notified")
	return sent, nil
}

func statusText(e ride.StatusEvent) (title, body string, ok bool) {
	route := fmt.Sprintf("%s to %s", e.Origin, e.Destination)
	switch e.To {
	case ride.StatusStarted:
		return "Your ride has started", fmt.Sprintf("The driver has left for %s.", route), true
	case ride.StatusCompleted:
		return "Ride completed", fmt.Sprintf("Thanks for sharing the ride from %s.", route), true
	case ride.StatusCancelled:
		return "Ride cancelled", fmt.Sprintf("The driver cancelled the ride from %s on %s.", route, e.DepartAt.Format("Jan 2 15:04")), true
	}
	return "", "", false
}
