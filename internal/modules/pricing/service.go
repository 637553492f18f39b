// README: Pricing service builds route quotes on top of the calculator.
package pricing

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// RouteEstimator resolves the driving distance between two addresses.
type RouteEstimator interface {
	DistanceKm(ctx context.Context, origin, destination string) (float64, error)
}

type Service struct {
	routes   RouteEstimator
	currency string
}

func NewService(routes RouteEstimator, currency string) *Service {
	return &Service{routes: routes, currency: currency}
}

func (s *Service) Currency() string {
	return s.currency
}

// QuoteDistance prices a route of known length. PlatformFee and PassengerPrice
// are computed on the suggested price.
func (s *Service) QuoteDistance(distanceKm float64) (Quote, error) {
	suggested, err := SuggestedPrice(distanceKm)
	if err != nil {
		return Quote{}, err
	}
	maxPrice, err := MaxAllowedPrice(distanceKm)
	if err != nil {
		return Quote{}, err
	}
	fee, err := PlatformFee(suggested)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		DistanceKm:      distanceKm,
		SuggestedPrice:  suggested,
		MaxAllowedPrice: maxPrice,
		PlatformFee:     fee,
		PassengerPrice:  suggested + fee,
		Currency:        s.currency,
	}, nil
}

// QuoteRoute asks the mapping API for the distance and prices it.
func (s *Service) QuoteRoute(ctx context.Context, origin, destination string) (Quote, error) {
	km, err := s.DistanceKm(ctx, origin, destination)
	if err != nil {
		return Quote{}, err
	}
	return s.QuoteDistance(km)
}

func (s *Service) DistanceKm(ctx context.Context, origin, destination string) (float64, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return 0, ErrInvalidDestination
	}
	if s.routes == nil {
		return 0, ErrRoutesUnavailable
	}
	km, err := s.routes.DistanceKm(ctx, origin, destination)
	if err != nil {
		return 0, errors.Wrap(err, "route distance")
	}
	return km, nil
}
