package catalog

import (
	"iter"
	"slices"
	"strings"

	"bitbucket.org/crgw/rental-desk/internal/schema"
)

// Filter yields the vehicles whose make or model contains query case-insensitively, or whose
// price label contains it. An empty query yields nothing. The sequence re-evaluates on every
// iteration.
func Filter(vehicles []schema.Vehicle, query string) iter.Seq[schema.Vehicle] {
	return func(yield func(schema.Vehicle) bool) {
		if query == "" {
			return
		}

		needle := strings.ToLower(query)
		for _, vehicle := range vehicles {
			if !Matches(vehicle, needle, query) {
				continue
			}
			if !yield(vehicle) {
				return
			}
		}
	}
}

// Matches is the picker predicate. lowered is query already lower-cased.
func Matches(vehicle schema.Vehicle, lowered string, query string) bool {
	return strings.Contains(strings.ToLower(vehicle.Make), lowered) ||
		strings.Contains(strings.ToLower(vehicle.Model), lowered) ||
		strings.Contains(vehicle.PriceLabel(), query)
}

// Index is the loaded catalog. A load replaces its contents wholesale.
type Index struct {
	vehicles []schema.Vehicle
}

func NewIndex() *Index {
	return &Index{vehicles: []schema.Vehicle{}}
}

func (i *Index) Replace(vehicles []schema.Vehicle) {
	i.vehicles = slices.Clone(vehicles)
}

func (i *Index) Len() int {
	return len(i.vehicles)
}

func (i *Index) Filter(query string) iter.Seq[schema.Vehicle] {
	return Filter(i.vehicles, query)
}

func (i *Index) Find(id string) (schema.Vehicle, bool) {
	for _, vehicle := range i.vehicles {
		if vehicle.Id == id {
			return vehicle, true
		}
	}
	return schema.Vehicle{}, false
}
