package fakeapi

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ukydev/rentacar/internal/models"
)

var cities = []string{"London", "Madrid", "Paris", "Berlin", "Istanbul", "Cardiff"}

var makes = map[string][]string{
	"ICE": {"Ford", "Chevrolet", "Toyota", "Honda", "BMW"},
	"EV":  {"Tesla", "Nissan", "Chevrolet", "Ford", "Audi"},
}

var vehicleModels = map[string][]string{
	"ICE": {"F-150", "Silverado", "Camry", "Civic", "X5"},
	"EV":  {"Model 3", "Leaf", "Bolt", "Mach-E", "e-tron"},
}

// Catalogue builds a random fleet of size vehicles spread over the cities.
// Each vehicle serves one or two locations and may already have a booking
// starting within a month of now.
func Catalogue(rng *rand.Rand, size int, now time.Time) ([]models.Vehicle, []models.Location) {
	locations := make([]models.Location, 0, len(cities))
	for i, city := range cities {
		locations = append(locations, models.Location{
			ID:   int64(i + 1),
			Name: city + " Central",
			City: city,
		})
	}

	vehicles := make([]models.Vehicle, 0, size)
	for i := 0; i < size; i++ {
		vtype := []string{"ICE", "EV"}[rng.Intn(2)]
		brand := makes[vtype][rng.Intn(len(makes[vtype]))]
		model := vehicleModels[vtype][rng.Intn(len(vehicleModels[vtype]))]

		v := models.Vehicle{
			ID:          int64(i + 1),
			Slug:        slugify(fmt.Sprintf("%s %s %d", brand, model, i+1)),
			Make:        brand,
			Model:       model,
			Year:        2020 + rng.Intn(5),
			Type:        vtype,
			PricePerDay: float64(30 + rng.Intn(90)),
			Locations:   []models.Location{locations[rng.Intn(len(locations))]},
		}
		if extra := locations[rng.Intn(len(locations))]; extra.ID != v.Locations[0].ID && rng.Intn(2) == 0 {
			v.Locations = append(v.Locations, extra)
		}
		if rng.Intn(3) == 0 {
			start := now.Truncate(time.Hour).Add(time.Duration(rng.Intn(30*24)) * time.Hour)
			end := start.Add(time.Duration(24+rng.Intn(5*24)) * time.Hour)
			v.Dates = []models.DateRange{{Pickup: models.Timestamp{Time: start}, DropOff: models.Timestamp{Time: end}}}
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, locations
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ReplaceAll(s, "--", "-")
}
