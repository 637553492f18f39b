// README: Ride search index backed by Redis GEO (departure points of active rides).
package search

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"carpool/internal/types"
)

const rideGeoKey = "search:rides"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) Add(ctx context.Context, rideID types.ID, p types.Point) error {
	err := s.redis.GeoAdd(ctx, rideGeoKey, &redis.GeoLocation{
		Name:      string(rideID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
	return errors.Wrapf(err, "geoadd ride %s", rideID)
}

func (s *Store) Remove(ctx context.Context, rideID types.ID) error {
	err := s.redis.ZRem(ctx, rideGeoKey, string(rideID)).Err()
	return errors.Wrapf(err, "remove ride %s", rideID)
}

// Nearby returns ride IDs within radiusKm of p, closest first. limit <= 0
// means no limit.
func (s *Store) Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]types.ID, error) {
	q := &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}
	if limit > 0 {
		q.Count = limit
	}
	results, err := s.redis.GeoSearch(ctx, rideGeoKey, q).Result()
	if err != nil {
		return nil, errors.Wrap(err, "geosearch rides")
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
