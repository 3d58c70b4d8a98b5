package model

import "strings"

// Location identifies a library site.
type Location string

const (
	LocationGishushu Location = "GISHUSHU"
	LocationMasoro   Location = "MASORO"
)

// DefaultLocations are the sites known without any hours.yaml.
var DefaultLocations = []Location{LocationGishushu, LocationMasoro}

// ParseLocation normalizes a location code. Empty input is not a location.
func ParseLocation(s string) (Location, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	return Location(s), true
}

func (l Location) String() string {
	return string(l)
}
