package mock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

const restaurantLogoURL = "https://images.unsplash.com/photo-1572802419224-296b0aeee0d9?w=100&q=80"

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pastItem(id, name, img, p string, available bool, restID, restName string) domain.PastItem {
	return domain.PastItem{
		ItemID:         id,
		Name:           name,
		ImageURL:       img,
		Price:          price(p),
		IsAvailable:    available,
		RestaurantID:   restID,
		RestaurantName: restName,
	}
}

var (
	whopper   = pastItem("item_001", "Whopper Burger", "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=300&q=80", "7.99", true, "rest_001", "Burger King")
	chicken   = pastItem("item_002", "Chicken Sandwich", "https://images.unsplash.com/photo-1606755962773-d324e0a13086?w=300&q=80", "6.99", true, "rest_001", "Burger King")
	pepperoni = pastItem("item_003", "Pepperoni Pizza", "https://images.unsplash.com/photo-1565299624946-b28f40a0ae38?w=400&q=80", "12.99", false, "rest_002", "Pizza Hut")
	burrito   = pastItem("item_004", "Burrito Bowl", "https://images.unsplash.com/photo-1582234372722-50d7ccc30ebd?w=400&q=80", "9.99", true, "rest_003", "Chipotle")
	macchiato = pastItem("item_005", "Caramel Macchiato", "https://images.unsplash.com/photo-1504753793650-d4a2b783c15e?w=400&q=80", "4.99", true, "rest_004", "Starbucks")
	fries     = pastItem("item_006", "French Fries", "https://images.unsplash.com/photo-1576107232684-1279f390859f?w=300&q=80", "3.99", true, "rest_001", "Burger King")
	guacamole = pastItem("item_007", "Guacamole", "https://images.unsplash.com/photo-1553979459-d2229ba7433b?w=300&q=80", "2.5", true, "rest_003", "Chipotle")
)

// SeedPastItems is the catalog of previously ordered items shown on the orders screen.
func SeedPastItems() []domain.PastItem {
	return []domain.PastItem{whopper, chicken, pepperoni, burrito, macchiato}
}

func SeedPastOrders() []domain.PastOrder {
	return []domain.PastOrder{
		{
			OrderID:        "order_001",
			RestaurantID:   "rest_001",
			RestaurantName: "Burger King",
			OrderDate:      time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC),
			TotalPrice:     price("24.97"),
			ItemCount:      3,
			ItemSummary:    "Whopper Burger, Chicken Sandwich, French Fries",
			ReorderAction:  domain.ReorderActionReorder,
			Items:          []domain.PastItem{whopper, chicken, fries},
		},
		{
			OrderID:        "order_002",
			RestaurantID:   "rest_003",
			RestaurantName: "Chipotle",
			OrderDate:      time.Date(2024, 1, 12, 12, 15, 0, 0, time.UTC),
			TotalPrice:     price("19.98"),
			ItemCount:      2,
			ItemSummary:    "Burrito Bowl, Guacamole",
			ReorderAction:  domain.ReorderActionReorder,
			Items:          []domain.PastItem{burrito, guacamole},
		},
		{
			OrderID:        "order_003",
			RestaurantID:   "rest_002",
			RestaurantName: "Pizza Hut",
			OrderDate:      time.Date(2024, 1, 10, 19, 45, 0, 0, time.UTC),
			TotalPrice:     price("18.99"),
			ItemCount:      1,
			ItemSummary:    "Large Pepperoni Pizza",
			ReorderAction:  domain.ReorderActionViewStore,
			Items:          []domain.PastItem{pepperoni},
		},
	}
}

func SeedServiceOptions() []domain.ServiceOption {
	return []domain.ServiceOption{
		{
			ID:            "tow",
			Name:          "Tow Service",
			IconURI:       "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=400&q=80",
			BasePrice:     price("79.99"),
			VariablePrice: price("2.0"),
			ETA:           "25 min",
			Description:   "Professional towing service to your destination",
			RequiresInput: true,
			InputType:     domain.InputMiles,
		},
		{
			ID:            "lockout",
			Name:          "Lockout Service",
			IconURI:       "https://images.unsplash.com/photo-1558618047-3c8c76ca7d13?w=400&q=80",
			BasePrice:     price("49.99"),
			VariablePrice: decimal.Zero,
			ETA:           "15 min",
			Description:   "Quick and safe vehicle lockout assistance",
			InputType:     domain.InputNone,
		},
		{
			ID:            "fuel",
			Name:          "Fuel Delivery",
			IconURI:       "https://images.unsplash.com/photo-1545558014-8692077e9b5c?w=400&q=80",
			BasePrice:     price("24.99"),
			VariablePrice: price("3.5"),
			ETA:           "20 min",
			Description:   "Emergency fuel delivery to your location",
			RequiresInput: true,
			InputType:     domain.InputGallons,
		},
		{
			ID:            "tire",
			Name:          "Tire Change",
			IconURI:       "https://images.unsplash.com/photo-1558618047-3c8c76ca7d13?w=400&q=80",
			BasePrice:     price("39.99"),
			VariablePrice: price("15.0"),
			ETA:           "30 min",
			Description:   "Professional tire change service",
			RequiresInput: true,
			InputType:     domain.InputTires,
		},
		{
			ID:            "battery",
			Name:          "Dead Battery",
			IconURI:       "https://images.unsplash.com/photo-1609592806596-4d1b5e5e0e0e?w=400&q=80",
			BasePrice:     price("34.99"),
			VariablePrice: decimal.Zero,
			ETA:           "18 min",
			Description:   "Jump start or battery replacement service",
			InputType:     domain.InputNone,
		},
	}
}

func SeedTechnicians() []domain.TechnicianInfo {
	return []domain.TechnicianInfo{
		{
			ID:       "tech_001",
			Name:     "Mike Rodriguez",
			PhotoURL: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=200&q=80",
			Vehicle:  "Ford F-150 • TRK789",
			Phone:    "(555) 123-4567",
			Rating:   4.9,
			Location: domain.LatLng{Lat: 37.7749, Lng: -122.4194},
		},
		{
			ID:       "tech_002",
			Name:     "Sarah Johnson",
			PhotoURL: "https://images.unsplash.com/photo-1494790108755-2616b332c1c2?w=200&q=80",
			Vehicle:  "Chevrolet Silverado • TRK456",
			Phone:    "(555) 987-6543",
			Rating:   4.8,
			Location: domain.LatLng{Lat: 37.7849, Lng: -122.4094},
		},
	}
}
