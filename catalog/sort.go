package catalog

import (
	"slices"
	"strings"

	"restaurant-tracker-api/models"
)

// Sort keys accepted by ListForAccount
const (
	SortDate        = "date"
	SortName        = "name"
	SortCuisineType = "cuisineType"
)

// SortRestaurants orders items in place. Unknown or empty keys keep the
// storage order. All orderings are stable.
func SortRestaurants(items []models.Restaurant, key string) {
	switch key {
	case SortDate:
		slices.SortStableFunc(items, compareLastVisit)
	case SortName:
		slices.SortStableFunc(items, func(a, b models.Restaurant) int {
			return strings.Compare(a.Name, b.Name)
		})
	case SortCuisineType:
		slices.SortStableFunc(items, func(a, b models.Restaurant) int {
			return strings.Compare(a.CuisineType, b.CuisineType)
		})
	}
}

// compareLastVisit orders by the date of the last appended visit, oldest
// first. Records without visits go last, ordered by name among themselves.
func compareLastVisit(a, b models.Restaurant) int {
	av, aok := a.LastVisit()
	bv, bok := b.LastVisit()
	switch {
	case aok && bok:
		return av.Date.Compare(bv.Date)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a.Name, b.Name)
	}
}
