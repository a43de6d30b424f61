package geo

import (
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
)

// DefaultPrecision is the geohash length stored on places.
// Six characters is roughly a 1.2 km x 0.6 km cell, enough to group
// nearby attractions without implying survey-grade accuracy.
const DefaultPrecision = 6

// maxPrecision is the longest geohash the encoder produces.
const maxPrecision = 12

// base32 is the geohash alphabet (no 'a', 'i', 'l' or 'o').
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash encodes c at the given precision. Precision outside 1..12 falls
// back to DefaultPrecision. Invalid coordinates encode to the empty string.
func Geohash(c Coordinate, precision int) string {
	if !c.Valid() {
		return ""
	}
	if precision < 1 || precision > maxPrecision {
		precision = DefaultPrecision
	}
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, uint(precision))
}

// CellCenter returns the center of the geohash cell. ok is false for
// malformed input.
func CellCenter(hash string) (Coordinate, bool) {
	if !validGeohash(hash) {
		return Coordinate{}, false
	}
	lat, lng := geohash.DecodeCenter(strings.ToLower(hash))
	return Coordinate{Latitude: lat, Longitude: lng}, true
}

// RoundGeohash truncates a geohash to precision characters.
//
// Returns the empty string if input is empty, contains characters outside the
// geohash alphabet, or precision is less than 1. Shorter inputs are returned
// lowercased and unchanged.
func RoundGeohash(input string, precision int) string {
	if input == "" || precision < 1 {
		return ""
	}
	lower := strings.ToLower(input)
	if !validGeohash(lower) {
		return ""
	}
	if len(lower) <= precision {
		return lower
	}
	return lower[:precision]
}

func validGeohash(hash string) bool {
	if hash == "" {
		return false
	}
	for _, c := range strings.ToLower(hash) {
		if !strings.ContainsRune(base32, c) {
			return false
		}
	}
	return true
}

// formatDegrees renders a degree value without trailing zeros.
func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
