package ical

import (
	"github.com/cespare/xxhash/v2"
)

// Named CSS3 colors understood by the COLOR property (RFC 7986).
var Palette = [...]string{
	"crimson",
	"darkorange",
	"goldenrod",
	"olivedrab",
	"seagreen",
	"teal",
	"steelblue",
	"royalblue",
	"slateblue",
	"darkorchid",
	"mediumvioletred",
	"indianred",
	"chocolate",
	"darkkhaki",
	"forestgreen",
	"lightseagreen",
	"cadetblue",
	"dodgerblue",
	"mediumpurple",
	"palevioletred",
}

// Deterministic color for a seed such as a location or a category, stable
// across processes since xxhash is unseeded.
func AssignColor(seed string) string {
	return Palette[xxhash.Sum64String(seed)%uint64(len(Palette))]
}
