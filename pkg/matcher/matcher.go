// Package matcher picks the restaurants able to cook a whole order and
// ranks them by distance to the delivery address.
package matcher

import (
	"context"
	"fmt"
	"sort"

	"github.com/example/foodcart/pkg/geo"
	"github.com/example/foodcart/pkg/geocoder"
	"github.com/example/foodcart/pkg/models"
	"go.uber.org/zap"
)

type Candidate struct {
	Restaurant models.Restaurant `json:"restaurant"`
	DistanceKm float64           `json:"distance_km"`
}

// Result carries the ranked candidates. Err is set when matching could not
// run to completion; Candidates is then empty.
type Result struct {
	Candidates []Candidate
	Err        error
}

type Catalog interface {
	AvailableMenuItems(ctx context.Context, productIDs []uint) ([]models.RestaurantMenuItem, error)
	RestaurantsByIDs(ctx context.Context, ids []uint) ([]models.Restaurant, error)
}

type Locator interface {
	Resolve(ctx context.Context, address string) geocoder.Resolution
}

type Matcher struct {
	catalog Catalog
	locator Locator
	logger  *zap.Logger
}

func New(catalog Catalog, locator Locator, logger *zap.Logger) *Matcher {
	return &Matcher{catalog: catalog, locator: locator, logger: logger}
}

// Match ranks eligible restaurants by distance, nearest first. Restaurants at
// equal distance keep their ID order. Restaurants whose address cannot be
// resolved are left out.
func (m *Matcher) Match(ctx context.Context, order *models.Order) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("matching order %d panicked: %v", order.ID, r)}
		}
	}()

	delivery := m.locator.Resolve(ctx, order.Address)
	if delivery.Point == nil {
		return Result{Err: delivery.Err}
	}

	ordered := OrderedProducts(order.Items)
	if len(ordered) == 0 {
		return Result{}
	}

	menu, err := m.catalog.AvailableMenuItems(ctx, ordered)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to load menus: %w", err)}
	}
	eligible := EligibleRestaurants(ordered, menu)
	if len(eligible) == 0 {
		return Result{}
	}

	restaurants, err := m.catalog.RestaurantsByIDs(ctx, eligible)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to load restaurants: %w", err)}
	}

	candidates := make([]Candidate, 0, len(restaurants))
	for _, restaurant := range restaurants {
		point := m.locator.Resolve(ctx, restaurant.Address).Point
		dist := geo.Distance(delivery.Point, point)
		if dist == nil {
			m.logger.Debug("Skipping restaurant without coordinates",
				zap.Uint("restaurant_id", restaurant.ID),
				zap.String("address", restaurant.Address))
			continue
		}
		candidates = append(candidates, Candidate{Restaurant: restaurant, DistanceKm: *dist})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
	return Result{Candidates: candidates}
}

// Candidates is Match with errors logged and collapsed to an empty list.
func (m *Matcher) Candidates(ctx context.Context, order *models.Order) []Candidate {
	res := m.Match(ctx, order)
	if res.Err != nil {
		m.logger.Warn("Restaurant matching failed",
			zap.Uint("order_id", order.ID),
			zap.Error(res.Err))
		return []Candidate{}
	}
	if res.Candidates == nil {
		return []Candidate{}
	}
	return res.Candidates
}

// OrderedProducts returns the distinct product IDs of items in first-seen order.
func OrderedProducts(items []models.OrderItem) []uint {
	seen := make(map[uint]struct{}, len(items))
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

type productSet map[uint]struct{}

func (s productSet) containsAll(ids []uint) bool {
	for _, id := range ids {
		if _, ok := s[id]; !ok {
			return false
		}
	}
	return true
}

// EligibleRestaurants returns, in ascending ID order, the restaurants whose
// available menu entries cover every ordered product.
func EligibleRestaurants(ordered []uint, menu []models.RestaurantMenuItem) []uint {
	offered := make(map[uint]productSet)
	for _, item := range menu {
		if !item.Availability {
			continue
		}
		set, ok := offered[item.RestaurantID]
		if !ok {
			set = productSet{}
			offered[item.RestaurantID] = set
		}
		set[item.ProductID] = struct{}{}
	}

	eligible := make([]uint, 0, len(offered))
	for restaurantID, set := range offered {
		if set.containsAll(ordered) {
			eligible = append(eligible, restaurantID)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i] < eligible[j] })
	return eligible
}
