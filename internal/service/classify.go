package service

import (
	"strings"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// labelAliases folds provider-specific spellings onto canonical types
var labelAliases = map[string]domain.VehicleType{
	"car":        domain.VehicleCar,
	"motorcycle": domain.VehicleMotorcycle,
	"motorbike":  domain.VehicleMotorcycle,
	"truck":      domain.VehicleTruck,
	"lorry":      domain.VehicleTruck,
	"bus":        domain.VehicleBus,
}

// Classifier maps tracker class labels to canonical vehicle types
type Classifier struct {
	recognized map[domain.VehicleType]bool
}

// NewClassifier creates a classifier that accepts the given vehicle types.
// With no types it accepts car, motorcycle, truck and bus.
func NewClassifier(types ...domain.VehicleType) *Classifier {
	if len(types) == 0 {
		types = []domain.VehicleType{
			domain.VehicleCar, domain.VehicleMotorcycle, domain.VehicleTruck, domain.VehicleBus,
		}
	}
	c := &Classifier{recognized: make(map[domain.VehicleType]bool, len(types))}
	for _, t := range types {
		c.recognized[t] = true
	}
	return c
}

// Canonical normalizes a label. Known aliases map to their vehicle type,
// anything else is lower-cased and trimmed.
func (c *Classifier) Canonical(label string) domain.VehicleType {
	l := strings.ToLower(strings.TrimSpace(label))
	if t, ok := labelAliases[l]; ok {
		return t
	}
	return domain.VehicleType(l)
}

// Recognized reports whether label maps to an accepted vehicle type
func (c *Classifier) Recognized(label string) bool {
	return c.recognized[c.Canonical(label)]
}
