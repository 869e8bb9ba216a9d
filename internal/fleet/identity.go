package fleet

import "strings"

// roomIdentityMap maps name keywords to friendly room labels.
var roomIdentityMap = []struct {
	keyword string
	name    string
}{
	{"salon", "Living room"},
	{"living", "Living room"},
	{"cuisine", "Kitchen"},
	{"kitchen", "Kitchen"},
	{"chambre", "Bedroom"},
	{"bedroom", "Bedroom"},
	{"bureau", "Office"},
	{"office", "Office"},
	{"garage", "Garage"},
	{"cave", "Cellar"},
	{"cellar", "Cellar"},
	{"grenier", "Attic"},
	{"attic", "Attic"},
	{"bain", "Bathroom"},
	{"bath", "Bathroom"},
}

// RoomName returns a human-readable room label for a device name.
func RoomName(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range roomIdentityMap {
		if strings.Contains(lower, entry.keyword) {
			return entry.name
		}
	}
	return "Room"
}

// TempBand classifies a temperature for display.
type TempBand int

const (
	Comfort TempBand = iota
	Cold
	Warm
)

const (
	coldBelow = 18.0
	warmAbove = 25.0
)

// Band returns the display band of a temperature.
func Band(temp float64) TempBand {
	switch {
	case temp < coldBelow:
		return Cold
	case temp > warmAbove:
		return Warm
	default:
		return Comfort
	}
}
