package dispatch

import (
	"sort"

	"github.com/fixhubapp/fixhub-backend/pkg/db/models"
	"github.com/fixhubapp/fixhub-backend/pkg/geo"
)

// CategoryAll disables category filtering in Rank.
const CategoryAll = "all"

// RankedOrder pairs an order with the viewer's distance to it, when known.
type RankedOrder struct {
	Order      models.Order `json:"order"`
	DistanceKm *float64     `json:"distance_km,omitempty"`
}

// Rank filters orders by category and sorts them by distance from the viewer.
// Orders without coordinates, or when the viewer location is unknown, sort
// after every order with a resolvable distance and keep their relative order.
func Rank(orders []models.Order, viewerLat, viewerLng *float64, categoryID string) []RankedOrder {
	ranked := make([]RankedOrder, 0, len(orders))
	for _, order := range orders {
		if categoryID != "" && categoryID != CategoryAll && order.CategoryID != categoryID {
			continue
		}
		entry := RankedOrder{Order: order}
		if viewerLat != nil && viewerLng != nil && order.HasCoordinates() {
			d := geo.DistanceKm(*viewerLat, *viewerLng, *order.Latitude, *order.Longitude)
			entry.DistanceKm = &d
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].DistanceKm, ranked[j].DistanceKm
		switch {
		case di != nil && dj != nil:
			return *di < *dj
		case di != nil:
			return true
		default:
			return false
		}
	})
	return ranked
}
