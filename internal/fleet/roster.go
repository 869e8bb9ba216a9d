package fleet

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidRoster is wrapped by every roster validation failure.
var ErrInvalidRoster = errors.New("invalid device roster")

// Seed is the start-of-process description of one device.
type Seed struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	Temp float64 `yaml:"temperature"`
}

// DefaultSeeds is the reference five-sensor roster.
var DefaultSeeds = []Seed{
	{ID: "DEV-001", Name: "Capteur Salon", Temp: 20},
	{ID: "DEV-002", Name: "Capteur Cuisine", Temp: 22},
	{ID: "DEV-003", Name: "Capteur Chambre", Temp: 19},
	{ID: "DEV-004", Name: "Capteur Bureau", Temp: 21},
	{ID: "DEV-005", Name: "Capteur Garage", Temp: 15},
}

// Roster is a validated, ordered set of seeds. Order is fleet membership
// order and stays stable for the life of the process.
type Roster struct {
	seeds []Seed
}

// NewRoster validates seeds against the clamp bounds. Names must be unique
// as well as IDs since history rows are keyed by name.
func NewRoster(seeds []Seed, bounds Bounds) (Roster, error) {
	if !(bounds.Min <= bounds.Max) || math.IsInf(bounds.Min, 0) || math.IsInf(bounds.Max, 0) {
		return Roster{}, fmt.Errorf("%w: invalid temperature bounds [%.1f, %.1f]", ErrInvalidRoster, bounds.Min, bounds.Max)
	}
	if len(seeds) == 0 {
		return Roster{}, fmt.Errorf("%w: no devices configured", ErrInvalidRoster)
	}

	ids := make(map[string]bool, len(seeds))
	names := make(map[string]bool, len(seeds))
	for i, s := range seeds {
		id := strings.TrimSpace(s.ID)
		name := strings.TrimSpace(s.Name)
		switch {
		case id == "":
			return Roster{}, fmt.Errorf("%w: device #%d has an empty id", ErrInvalidRoster, i+1)
		case name == "":
			return Roster{}, fmt.Errorf("%w: device %s has an empty name", ErrInvalidRoster, id)
		case ids[id]:
			return Roster{}, fmt.Errorf("%w: duplicate device id %s", ErrInvalidRoster, id)
		case names[name]:
			return Roster{}, fmt.Errorf("%w: duplicate device name %q", ErrInvalidRoster, name)
		case !bounds.Contains(s.Temp):
			return Roster{}, fmt.Errorf("%w: device %s seed %.1f°C outside [%.1f, %.1f]",
				ErrInvalidRoster, id, s.Temp, bounds.Min, bounds.Max)
		}
		ids[id] = true
		names[name] = true
	}

	out := make([]Seed, len(seeds))
	for i, s := range seeds {
		out[i] = Seed{ID: strings.TrimSpace(s.ID), Name: strings.TrimSpace(s.Name), Temp: s.Temp}
	}
	return Roster{seeds: out}, nil
}

// Len returns the number of devices in the roster.
func (r Roster) Len() int {
	return len(r.seeds)
}

// Devices creates the initial device set. Every device starts online and
// has no last update.
func (r Roster) Devices() []Device {
	devices := make([]Device, len(r.seeds))
	for i, s := range r.seeds {
		devices[i] = Device{
			ID:     s.ID,
			Name:   s.Name,
			Temp:   s.Temp,
			Status: Online,
		}
	}
	return devices
}
