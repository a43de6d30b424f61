package place

import (
	"slices"
	"testing"

	"github.com/onnwee/golocal/internal/geo"
)

func testPlaces() []Place {
	return []Place{
		{ID: "a", Name: "Beach One", Category: "praia", IsFree: true, Images: []string{"a.jpg"},
			Location: &geo.Coordinate{Latitude: 10, Longitude: 20}},
		{ID: "b", Name: "Old Fort", Category: "histórico", Images: []string{"b.jpg"}},
		{ID: "c", Name: "Beach Two", Category: "Praia", IsFree: true,
			Location: &geo.Coordinate{Latitude: 11, Longitude: 21}},
	}
}

func TestCatalog_Get(t *testing.T) {
	c, err := NewCatalog(testPlaces())
	if err != nil {
		t.Fatalf("NewCatalog() error: %v", err)
	}

	p, ok := c.Get("b")
	if !ok || p.Name != "Old Fort" {
		t.Errorf("Get(b) = %+v, %v", p, ok)
	}
	if _, ok := c.Get("zzz"); ok {
		t.Error("expected unknown id to be absent")
	}
	if !c.Has("a") || c.Has("zzz") {
		t.Error("Has() returned wrong membership")
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c, _ := NewCatalog(testPlaces())

	p, _ := c.Get("a")
	p.Images[0] = "mutated.jpg"
	p.Location.Latitude = 0

	again, _ := c.Get("a")
	if again.Images[0] != "a.jpg" {
		t.Error("catalogue image mutated through returned copy")
	}
	if again.Location.Latitude != 10 {
		t.Error("catalogue location mutated through returned copy")
	}

	all := c.All()
	all[0].Name = "changed"
	if first := c.All()[0]; first.Name != "Beach One" {
		t.Error("catalogue mutated through All()")
	}
}

func TestCatalog_WithLocation(t *testing.T) {
	c, _ := NewCatalog(testPlaces())

	var ids []string
	for _, p := range c.WithLocation() {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Errorf("WithLocation() ids = %v, want [a c]", ids)
	}
}

func TestCatalog_Categories(t *testing.T) {
	c, _ := NewCatalog(testPlaces())

	got := c.Categories()
	if !slices.Equal(got, []string{"praia", "histórico"}) {
		t.Errorf("Categories() = %v", got)
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c, _ := NewCatalog(testPlaces())

	got := c.Resolve([]string{"c", "missing", "a"})
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("Resolve() = %+v", got)
	}
}
