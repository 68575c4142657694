package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/pkg/utils"
)

// Store answers coarse containment queries; the service applies the exact
// great-circle filter on top.
type Store interface {
	OpenRequestsWithin(ctx context.Context, box utils.BoundingBox) ([]models.Request, error)
	StationsWithin(ctx context.Context, box utils.BoundingBox) ([]models.Station, error)
}

// RequestMatch is a feed entry annotated with the computed distance.
type RequestMatch struct {
	models.Request
	DistanceKm float64 `json:"distanceKm"`
}

// StationMatch is a nearby station annotated with the computed distance.
type StationMatch struct {
	models.Station
	DistanceKm float64 `json:"distanceKm"`
}

// Service produces the mechanic-facing request feed and the driver-facing
// station list. The radius is always an explicit parameter; there is no
// ambient "current radius" state, so every call is self-contained.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// NearbyRequests returns open requests within radiusKm of center, nearest
// first, ties broken oldest-created first so earlier requests are not
// starved. The caller's own requests are excluded here. The boundary is
// inclusive, and growing the radius never shrinks the result set for a
// fixed snapshot.
func (s *Service) NearbyRequests(ctx context.Context, callerID uint, center utils.Point, radiusKm float64) ([]RequestMatch, error) {
	if err := validateQuery(center, radiusKm); err != nil {
		return nil, err
	}

	box := utils.GetBoundingBox(center.Lat, center.Lng, radiusKm)
	requests, err := s.store.OpenRequestsWithin(ctx, box)
	if err != nil {
		return nil, err
	}

	matches := make([]RequestMatch, 0, len(requests))
	for _, req := range requests {
		if req.OwnerID == callerID {
			continue
		}
		if req.Status.Canonical() != models.RequestStatusNew {
			continue
		}
		d := utils.HaversineDistance(center.Lat, center.Lng, req.Lat, req.Lng)
		if d > radiusKm {
			continue
		}
		matches = append(matches, RequestMatch{Request: req, DistanceKm: utils.RoundKm(d)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

// NearbyStations is the symmetric query over station profiles.
func (s *Service) NearbyStations(ctx context.Context, center utils.Point, radiusKm float64) ([]StationMatch, error) {
	if err := validateQuery(center, radiusKm); err != nil {
		return nil, err
	}

	box := utils.GetBoundingBox(center.Lat, center.Lng, radiusKm)
	stations, err := s.store.StationsWithin(ctx, box)
	if err != nil {
		return nil, err
	}

	matches := make([]StationMatch, 0, len(stations))
	for _, st := range stations {
		d := utils.HaversineDistance(center.Lat, center.Lng, st.Lat, st.Lng)
		if d > radiusKm {
			continue
		}
		matches = append(matches, StationMatch{Station: st, DistanceKm: utils.RoundKm(d)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func validateQuery(center utils.Point, radiusKm float64) error {
	if radiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive", lifecycle.ErrValidation)
	}
	if center.Lat < -90 || center.Lat > 90 || center.Lng < -180 || center.Lng > 180 {
		return fmt.Errorf("%w: location out of range", lifecycle.ErrValidation)
	}
	return nil
}
