package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const ErrMsgItemUnavailable = "This item is currently unavailable"

type PastItem struct {
	ItemID         string
	Name           string
	ImageURL       string
	Price          decimal.Decimal
	IsAvailable    bool
	RestaurantID   string
	RestaurantName string
}

// MenuItem lets a past item be added straight back into a cart.
func (p PastItem) MenuItem() MenuItem {
	return MenuItem{
		ID:           p.ItemID,
		Name:         p.Name,
		BasePrice:    p.Price,
		RestaurantID: p.RestaurantID,
	}
}

type DeliveryInfo struct {
	Fee     decimal.Decimal
	Minutes int
}

type PastItemGroup struct {
	RestaurantID      string
	RestaurantName    string
	RestaurantLogoURL string
	DeliveryInfo      DeliveryInfo
	Items             []PastItem
}

type ReorderAction string

const (
	ReorderActionReorder   ReorderAction = "reorder"
	ReorderActionViewStore ReorderAction = "view_store"
)

type PastOrder struct {
	OrderID        string
	RestaurantID   string
	RestaurantName string
	OrderDate      time.Time
	TotalPrice     decimal.Decimal
	ItemCount      int
	ItemSummary    string
	ReorderAction  ReorderAction
	Items          []PastItem
}

type AddToCartResult struct {
	Success bool
	Message string
	Item    PastItem
}

// ReorderResult separates what can be reordered from what cannot.
// Success is true only when every item is available.
type ReorderResult struct {
	Success     bool
	Available   []PastItem
	Unavailable []PastItem
}

func SplitByAvailability(items []PastItem) ReorderResult {
	var res ReorderResult
	for _, it := range items {
		if it.IsAvailable {
			res.Available = append(res.Available, it)
		} else {
			res.Unavailable = append(res.Unavailable, it)
		}
	}
	res.Success = len(res.Unavailable) == 0
	return res
}

// GroupByRestaurant keeps the first-seen restaurant order.
func GroupByRestaurant(items []PastItem, logoURL string, info DeliveryInfo) []PastItemGroup {
	var groups []PastItemGroup
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.RestaurantID]
		if !ok {
			groups = append(groups, PastItemGroup{
				RestaurantID:      it.RestaurantID,
				RestaurantName:    it.RestaurantName,
				RestaurantLogoURL: logoURL,
				DeliveryInfo:      info,
			})
			i = len(groups) - 1
			index[it.RestaurantID] = i
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
