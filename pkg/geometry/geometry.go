package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a position in frame pixel space
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the point as "(x,y)"
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Orientation reports whether c lies counterclockwise of the directed segment a->b.
// Only the sign of the cross product matters; collinear points report false.
func Orientation(a, b, c Point) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// Crossed reports whether the displacement segment prev->curr intersects the
// gate segment gateStart->gateEnd.
func Crossed(gateStart, gateEnd, prev, curr Point) bool {
	return Orientation(gateStart, prev, curr) != Orientation(gateEnd, prev, curr) &&
		Orientation(gateStart, gateEnd, prev) != Orientation(gateStart, gateEnd, curr)
}

// ParseSegment parses "x1,y1,x2,y2" into two points
func ParseSegment(s string) (Point, Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Point{}, Point{}, fmt.Errorf("geometry: segment %q must have 4 comma-separated values", s)
	}

	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Point{}, Point{}, fmt.Errorf("geometry: failed to parse segment value %q: %w", part, err)
		}
		v[i] = n
	}

	return Point{X: v[0], Y: v[1]}, Point{X: v[2], Y: v[3]}, nil
}

// Clamp limits a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
