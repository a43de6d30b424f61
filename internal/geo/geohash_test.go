package geo

import (
	"math"
	"testing"
)

func TestGeohash(t *testing.T) {
	tests := []struct {
		name      string
		coord     Coordinate
		precision int
		want      string
	}{
		{
			name:      "reference point at precision 6",
			coord:     Coordinate{Latitude: 57.64911, Longitude: 10.40744},
			precision: 6,
			want:      "u4pruy",
		},
		{
			name:      "reference point at full precision",
			coord:     Coordinate{Latitude: 57.64911, Longitude: 10.40744},
			precision: 11,
			want:      "u4pruydqqvj",
		},
		{
			name:      "precision out of range falls back to default",
			coord:     Coordinate{Latitude: 57.64911, Longitude: 10.40744},
			precision: 0,
			want:      "u4pruy",
		},
		{
			name:      "invalid coordinate encodes to empty",
			coord:     Coordinate{Latitude: math.NaN(), Longitude: 10},
			precision: 6,
			want:      "",
		},
		{
			name:      "latitude out of range encodes to empty",
			coord:     Coordinate{Latitude: 91, Longitude: 10},
			precision: 6,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Geohash(tt.coord, tt.precision); got != tt.want {
				t.Errorf("Geohash(%v, %d) = %q, want %q", tt.coord, tt.precision, got, tt.want)
			}
		})
	}
}

func TestCellCenter(t *testing.T) {
	c := Coordinate{Latitude: -24.3097, Longitude: -46.9983}
	hash := Geohash(c, 7)

	center, ok := CellCenter(hash)
	if !ok {
		t.Fatalf("CellCenter(%q) reported invalid hash", hash)
	}
	if DistanceKm(c, center) > 0.2 {
		t.Errorf("cell center %v too far from %v", center, c)
	}

	if _, ok := CellCenter("not-a-hash"); ok {
		t.Error("expected malformed hash to be rejected")
	}
	if _, ok := CellCenter(""); ok {
		t.Error("expected empty hash to be rejected")
	}
}

func TestRoundGeohash(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		precision int
		want      string
	}{
		{"truncate to default precision", "6gxp7yz4kq", DefaultPrecision, "6gxp7y"},
		{"truncate to precision 4", "6gxp7yz4kq", 4, "6gxp"},
		{"shorter than precision returned as is", "6gx", 6, "6gx"},
		{"equal to precision returned as is", "6gxp7y", 6, "6gxp7y"},
		{"uppercase is normalized", "6GXP7YZ", 6, "6gxp7y"},
		{"empty input", "", 6, ""},
		{"invalid character a", "6gxa7y", 6, ""},
		{"invalid character with space", "6gx p7y", 6, ""},
		{"zero precision", "6gxp7y", 0, ""},
		{"negative precision", "6gxp7y", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundGeohash(tt.input, tt.precision); got != tt.want {
				t.Errorf("RoundGeohash(%q, %d) = %q, want %q", tt.input, tt.precision, got, tt.want)
			}
		})
	}
}
