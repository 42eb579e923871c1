package service

import (
	"github.com/smartcity/vehicle-counter/internal/domain"
)

// EventSink is re-exported from domain for convenience
type EventSink = domain.EventSink
