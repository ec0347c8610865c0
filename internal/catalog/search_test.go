package catalog

import (
	"slices"
	"strings"
	"testing"

	"bitbucket.org/crgw/rental-desk/internal/schema"
	"github.com/stretchr/testify/assert"
)

func fleet() []schema.Vehicle {
	return []schema.Vehicle{
		{Id: "1", Make: "Toyota", Model: "Corolla", Price: 40},
		{Id: "2", Make: "Honda", Model: "Civic", Price: 45},
		{Id: "3", Make: "Tesla", Model: "Model 3", Price: 120.5},
		{Id: "4", Make: "Ford", Model: "Focus", Price: 140},
	}
}

func ids(vehicles []schema.Vehicle) []string {
	result := []string{}
	for _, vehicle := range vehicles {
		result = append(result, vehicle.Id)
	}
	return result
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"empty query hides the picker", "", []string{}},
		{"make prefix", "toy", []string{"1"}},
		{"case insensitive model", "CIVIC", []string{"2"}},
		{"make or model", "o", []string{"1", "2", "3", "4"}},
		{"price substring", "40", []string{"1", "4"}},
		{"fractional price", "120.5", []string{"3"}},
		{"model with digits", "model 3", []string{"3"}},
		{"no match", "volvo", []string{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ids(slices.Collect(Filter(fleet(), test.query))))
		})
	}

	t.Run("should only yield matching members of the catalog", func(t *testing.T) {
		vehicles := fleet()
		for _, query := range []string{"a", "T", "4", "1", "el", "xyz", " "} {
			for vehicle := range Filter(vehicles, query) {
				assert.Contains(t, vehicles, vehicle)
				assert.True(t,
					strings.Contains(strings.ToLower(vehicle.Make), strings.ToLower(query)) ||
						strings.Contains(strings.ToLower(vehicle.Model), strings.ToLower(query)) ||
						strings.Contains(vehicle.PriceLabel(), query),
				)
			}
		}
	})

	t.Run("should be restartable", func(t *testing.T) {
		seq := Filter(fleet(), "o")
		assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
	})

	t.Run("should stop when consumer stops", func(t *testing.T) {
		seen := 0
		for range Filter(fleet(), "o") {
			seen++
			break
		}
		assert.Equal(t, 1, seen)
	})
}

func TestIndex(t *testing.T) {
	index := NewIndex()
	assert.Equal(t, 0, index.Len())

	index.Replace(fleet())
	assert.Equal(t, 4, index.Len())

	vehicle, ok := index.Find("3")
	assert.True(t, ok)
	assert.Equal(t, "Tesla Model 3", vehicle.DisplayName())

	index.Replace([]schema.Vehicle{{Id: "9", Make: "Kia", Model: "Rio", Price: 30}})
	_, ok = index.Find("3")
	assert.False(t, ok)
	assert.Equal(t, []string{"9"}, ids(slices.Collect(index.Filter("rio"))))
}
