package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

func TestClassifier_Canonical(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		label string
		want  domain.VehicleType
	}{
		{"car", domain.VehicleCar},
		{"motorcycle", domain.VehicleMotorcycle},
		{"truck", domain.VehicleTruck},
		{"bus", domain.VehicleBus},
		{"Car", domain.VehicleCar},
		{" motorbike ", domain.VehicleMotorcycle},
		{"Lorry", domain.VehicleTruck},
		{"Bicycle", domain.VehicleType("bicycle")},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Canonical(tt.label))
		})
	}
}

func TestClassifier_CanonicalIsIdempotent(t *testing.T) {
	c := NewClassifier()

	for _, label := range []string{"car", "motorcycle", "truck", "bus", "MotorBike", " LORRY ", "person", "Bicycle"} {
		once := c.Canonical(label)
		assert.Equal(t, once, c.Canonical(string(once)), "label %q", label)
	}
}

func TestClassifier_Recognized(t *testing.T) {
	c := NewClassifier()
	assert.True(t, c.Recognized("car"))
	assert.True(t, c.Recognized("bus"))
	assert.True(t, c.Recognized("motorbike"))
	assert.False(t, c.Recognized("person"))
	assert.False(t, c.Recognized("bicycle"))

	carsOnly := NewClassifier(domain.VehicleCar)
	assert.True(t, carsOnly.Recognized("Car"))
	assert.False(t, carsOnly.Recognized("truck"))
}
