package types

import (
	"fmt"
	"strings"
)

// TrackingLocation is the courier position attached to a tracking entry.
type TrackingLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Label returns the address when known, otherwise the coordinates.
func (l TrackingLocation) Label() string {
	if addr := strings.TrimSpace(l.Address); addr != "" {
		return addr
	}
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}
