package domain

import (
	"time"

	"github.com/smartcity/vehicle-counter/pkg/geometry"
)

// VehicleType is the canonical vehicle category recorded with a crossing
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleTruck      VehicleType = "truck"
	VehicleBus        VehicleType = "bus"
)

// BBox is an axis-aligned bounding box in frame pixel space
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Centroid returns the box center truncated to whole pixels
func (b BBox) Centroid() geometry.Point {
	return geometry.Point{
		X: int((b.X1 + b.X2) / 2),
		Y: int((b.Y1 + b.Y2) / 2),
	}
}

// TrackedObservation is one tracked object seen in one frame
type TrackedObservation struct {
	ID         int64   `json:"id"`
	ClassLabel string  `json:"class_label"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Gate is the virtual counting line
type Gate struct {
	Start geometry.Point `json:"start"`
	End   geometry.Point `json:"end"`
}

// DefaultGate matches the line drawn on the 960x540 demo clip
var DefaultGate = Gate{
	Start: geometry.Point{X: 100, Y: 180},
	End:   geometry.Point{X: 700, Y: 50},
}

// CrossingEvent is the record of one counted gate crossing
type CrossingEvent struct {
	UUID        string      `json:"uuid"`
	Timestamp   time.Time   `json:"timestamp"`
	VehicleType VehicleType `json:"vehicle_type"`
	VehicleID   int64       `json:"vehicle_id"`
	LocationID  string      `json:"location_id"`
}

// Counters holds running totals of emitted crossings per vehicle type
type Counters struct {
	Cars        uint64 `json:"cars"`
	Motorcycles uint64 `json:"motorcycles"`
	Trucks      uint64 `json:"trucks"`
	Buses       uint64 `json:"buses"`
}

// Add increments the counter matching t. Unknown types are ignored.
func (c *Counters) Add(t VehicleType) {
	switch t {
	case VehicleCar:
		c.Cars++
	case VehicleMotorcycle:
		c.Motorcycles++
	case VehicleTruck:
		c.Trucks++
	case VehicleBus:
		c.Buses++
	}
}

// Total returns the sum of all counters
func (c Counters) Total() uint64 {
	return c.Cars + c.Motorcycles + c.Trucks + c.Buses
}

// CountersResponse wraps counters with metadata
type CountersResponse struct {
	Data       Counters `json:"data"`
	Total      uint64   `json:"total"`
	LocationID string   `json:"location_id"`
	Success    bool     `json:"success"`
}

// Frame is one unit pulled from a frame source. Image carries encoded pixels
// for a tracker service; Observations is set when the source already holds
// tracker output (recorded runs).
type Frame struct {
	Index        int                  `json:"frame"`
	Image        []byte               `json:"-"`
	Observations []TrackedObservation `json:"objects,omitempty"`
}

// Location is an entry of the site catalog
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultLocations is the built-in site catalog
var DefaultLocations = []Location{
	{ID: "Basni Crossing", Name: "Basni Crossing, Jodhpur"},
	{ID: "Bhagat ki kothi crossing", Name: "Bhagat ki kothi crossing, Jodhpur"},
	{ID: "Rai ka bagh crossing", Name: "Rai ka bagh crossing, Jodhpur"},
}
