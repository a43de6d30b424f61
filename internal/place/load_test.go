package place

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault(nil)
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if c.Len() != 13 {
		t.Fatalf("expected 13 places, got %d", c.Len())
	}

	for _, p := range c.All() {
		if p.ID == "" || p.Name == "" {
			t.Errorf("place missing id or name: %+v", p)
		}
		if len(p.Images) == 0 {
			t.Errorf("place %s has no images", p.ID)
		}
		if p.HasLocation() && len(p.Geohash) != 6 {
			t.Errorf("place %s geohash = %q, want 6 chars", p.ID, p.Geohash)
		}
		if !p.HasLocation() && p.Geohash != "" {
			t.Errorf("unlocated place %s has geohash %q", p.ID, p.Geohash)
		}
	}

	p, ok := c.Get("praia-do-cambore")
	if !ok {
		t.Fatal("expected praia-do-cambore in default dataset")
	}
	if p.HasLocation() {
		t.Error("praia-do-cambore should have no location")
	}
	if !slices.Equal(p.Images, []string{"praia-do-cambore.jpeg"}) {
		t.Errorf("legacy image not migrated, got %v", p.Images)
	}
}

func TestLoad_ImageNormalization(t *testing.T) {
	tests := []struct {
		name   string
		images string
		want   []string
	}{
		{"list wins over legacy", `"imagens":["a.jpg","b.jpg"],"imagem":"legacy.jpg"`, []string{"a.jpg", "b.jpg"}},
		{"empty list falls back to legacy", `"imagens":[],"imagem":"legacy.jpg"`, []string{"legacy.jpg"}},
		{"absent list falls back to legacy", `"imagem":"legacy.jpg"`, []string{"legacy.jpg"}},
		{"blank entries dropped", `"imagens":["", " "],"imagem":"legacy.jpg"`, []string{"legacy.jpg"}},
		{"neither present", `"nome":"x"`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `[{"id":"p1","nome":"Place",` + tt.images + `}]`
			c, err := Load(strings.NewReader(data), nil)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			p, _ := c.Get("p1")
			if !slices.Equal(p.Images, tt.want) {
				t.Errorf("images = %v, want %v", p.Images, tt.want)
			}
			if p.Images == nil {
				t.Error("images should be an empty slice, not nil")
			}
		})
	}
}

func TestLoad_Location(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{"valid", `"localizacao":{"latitude":-24.3,"longitude":-47.0}`, true},
		{"absent", `"gratuito":true`, false},
		{"missing longitude", `"localizacao":{"latitude":-24.3}`, false},
		{"out of range", `"localizacao":{"latitude":-124.3,"longitude":-47.0}`, false},
		{"null", `"localizacao":null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `[{"id":"p1","nome":"Place",` + tt.location + `}]`
			c, err := Load(strings.NewReader(data), nil)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			p, _ := c.Get("p1")
			if p.HasLocation() != tt.want {
				t.Errorf("HasLocation() = %v, want %v", p.HasLocation(), tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"missing id", `[{"nome":"A"}]`, ErrMissingID},
		{"missing name", `[{"id":"a"}]`, ErrMissingName},
		{"duplicate id", `[{"id":"a","nome":"A"},{"id":"a","nome":"B"}]`, ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.data), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(strings.NewReader(`{not json`), nil); err == nil {
		t.Error("expected decode error for malformed JSON")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	if err := os.WriteFile(path, []byte(`[{"id":"a","nome":"Alpha","tipo":"praia","gratuito":true}]`), 0o644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	c, err := LoadFile(path, nil)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	p, ok := c.Get("a")
	if !ok || p.Category != "praia" || !p.IsFree {
		t.Errorf("unexpected place: %+v", p)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
