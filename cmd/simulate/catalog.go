package main

import (
	"strconv"
	"strings"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

// listing is a catalog entry with the numeric fields the matcher filters on.
type listing struct {
	property    dialogue.Property
	price       int
	transaction dialogue.TransactionType
}

func demoCatalog() []listing {
	rent := dialogue.TransactionRental
	sale := dialogue.TransactionSale
	return []listing{
		{dialogue.Property{ID: "KIL-201", Title: "Kilimani Garden Apartments", Location: "Kilimani", Bedrooms: 2, PropertyType: "apartment",
			Description: "Second-floor unit with a balcony, backup generator and borehole water."}, 85000, rent},
		{dialogue.Property{ID: "KIL-305", Title: "Argwings Kodhek Residence", Location: "Kilimani", Bedrooms: 3, PropertyType: "apartment",
			Description: "Spacious three bedroom with a gym and rooftop terrace."}, 120000, rent},
		{dialogue.Property{ID: "KIL-118", Title: "Ring Road Court", Location: "Kilimani", Bedrooms: 2, PropertyType: "apartment",
			Description: "Compact two bedroom close to Yaya Centre."}, 70000, rent},
		{dialogue.Property{ID: "WST-410", Title: "Westlands Sky Suites", Location: "Westlands", Bedrooms: 1, PropertyType: "apartment",
			Description: "Serviced one bedroom with city views."}, 95000, rent},
		{dialogue.Property{ID: "KAR-007", Title: "Karen Hardy Villa", Location: "Karen", Bedrooms: 5, PropertyType: "villa",
			Description: "Half-acre compound with a mature garden and staff quarters."}, 85000000, sale},
		{dialogue.Property{ID: "RUN-032", Title: "Runda Plot", Location: "Runda", PropertyType: "land",
			Description: "Quarter-acre residential plot with ready title."}, 30000000, sale},
	}
}

// matchListings applies search_properties parameters to the catalog. Numeric
// parameters arrive as float64 after the JSON hop through the queue.
func matchListings(catalog []listing, params map[string]any) []dialogue.Property {
	location := strings.ToLower(stringParam(params, "location"))
	propertyType := strings.ToLower(stringParam(params, "property_type"))
	transaction := dialogue.TransactionType(stringParam(params, "transaction_type"))
	priceMin, hasMin := intParam(params, "price_min")
	priceMax, hasMax := intParam(params, "price_max")
	bedrooms, hasBedrooms := intParam(params, "bedrooms")

	var out []dialogue.Property
	for _, l := range catalog {
		switch {
		case location != "" && strings.ToLower(l.property.Location) != location:
			continue
		case propertyType != "" && l.property.PropertyType != propertyType:
			continue
		case transaction != "" && l.transaction != transaction:
			continue
		case hasMin && l.price < priceMin:
			continue
		case hasMax && l.price > priceMax:
			continue
		case hasBedrooms && l.property.Bedrooms < bedrooms:
			continue
		}
		p := l.property
		p.Price = dialogue.Price(strconv.Itoa(l.price))
		out = append(out, p)
	}
	return out
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
