// README: Suggested delivery sequencing over the Google Maps Distance Matrix API.
package routing

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// RouteService handles interactions with the Google Maps API.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Stop is one candidate delivery address.
type Stop struct {
	ParcelID string
	Address  string
}

// SuggestSequence orders the stops by driving distance from the origin
// warehouse, nearest first. Dispatchers use the result as the parcel order
// for a delivery mission; it is advisory, the caller may reorder freely.
func (s *RouteService) SuggestSequence(ctx context.Context, origin string, stops []Stop) ([]Stop, error) {
	if len(stops) == 0 {
		return nil, nil
	}

	destinations := make([]string, len(stops))
	for i, st := range stops {
		destinations[i] = st.Address
	}

	resp, err := s.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: destinations,
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) != len(stops) {
		return nil, fmt.Errorf("distance matrix: unexpected response shape")
	}

	distances := make(map[string]int, len(stops))
	for i, el := range resp.Rows[0].Elements {
		if el.Status != "OK" {
			return nil, fmt.Errorf("distance matrix: no route to %q", stops[i].Address)
		}
		distances[stops[i].ParcelID] = el.Distance.Meters
	}

	return OrderByDistance(stops, distances), nil
}
