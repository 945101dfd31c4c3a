package domain

import "strings"

// InTransitSentinel is the positional-argument literal that means "departed,
// location unchanged".
const InTransitSentinel = "In Transit"

// LocationUpdate is either an arrival at a named location or a departure into transit.
type LocationUpdate struct {
	location  string
	inTransit bool
}

// Arrived records that the asset is now at location.
func Arrived(location string) LocationUpdate {
	return LocationUpdate{location: location}
}

// DepartedInTransit records that the asset left its current location.
func DepartedInTransit() LocationUpdate {
	return LocationUpdate{inTransit: true}
}

// InTransit reports whether u is a departure.
func (u LocationUpdate) InTransit() bool { return u.inTransit }

// Location returns the arrival location; it is empty for departures.
func (u LocationUpdate) Location() string { return u.location }

// ParseLocationUpdate maps the positional argument form onto a LocationUpdate.
func ParseLocationUpdate(raw string) (LocationUpdate, error) {
	if raw == InTransitSentinel {
		return DepartedInTransit(), nil
	}
	if strings.TrimSpace(raw) == "" {
		return LocationUpdate{}, InvalidArgument("location must not be empty")
	}
	return Arrived(raw), nil
}
