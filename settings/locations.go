package settings

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// LocalLocation lets the remote service pick the market from the caller's IP
const LocalLocation = "local"

// Menu order, local first
var locationOrder = []string{
	LocalLocation,
	"enAU",
	"enCA",
	"frCA",
	"zhCN",
	"deDE",
	"esES",
	"frFR",
	"enIN",
	"itIT",
	"jaJP",
	"enNZ",
	"enUK",
	"enUS",
}

var knownLocations = mapset.NewSet(locationOrder...)

// Locations returns every recognized location code in menu order.
func Locations() []string {
	out := make([]string, len(locationOrder))
	copy(out, locationOrder)
	return out
}

// IsLocation reports whether code is one of the recognized location codes.
func IsLocation(code string) bool {
	return knownLocations.Contains(code)
}
