package place

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/onnwee/golocal/internal/geo"
)

//go:embed data/places.json
var defaultDataset []byte

// Dataset load errors.
var (
	ErrMissingID   = errors.New("place id is required")
	ErrMissingName = errors.New("place name is required")
	ErrDuplicateID = errors.New("duplicate place id")
)

// record mirrors one entry of the bundled dataset file, which keeps the
// Portuguese field names of the mobile app.
type record struct {
	ID            string   `json:"id"`
	Nome          string   `json:"nome"`
	Imagens       []string `json:"imagens"`
	Imagem        string   `json:"imagem"`
	Descricao     string   `json:"descricao"`
	Tipo          string   `json:"tipo"`
	Gratuito      bool     `json:"gratuito"`
	Horario       string   `json:"horario"`
	Taxa          string   `json:"taxa"`
	Dificuldade   string   `json:"dificuldade"`
	Dicas         string   `json:"dicas"`
	Curiosidades  string   `json:"curiosidades"`
	PalavrasChave []string `json:"palavrasChave"`
	Localizacao   *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"localizacao"`
}

// LoadDefault builds a catalogue from the dataset compiled into the binary.
func LoadDefault(logger *slog.Logger) (*Catalog, error) {
	return Load(bytes.NewReader(defaultDataset), logger)
}

// LoadFile builds a catalogue from a dataset file on disk.
func LoadFile(path string, logger *slog.Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, logger)
}

// Load decodes a dataset and returns the catalogue in file order.
//
// A malformed location is logged and dropped rather than failing the load;
// a missing id or name, or a repeated id, fails the whole load.
func Load(r io.Reader, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	places := make([]Place, 0, len(records))
	for i, rec := range records {
		p, err := rec.toPlace(logger)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		places = append(places, p)
	}

	return NewCatalog(places)
}

func (rec record) toPlace(logger *slog.Logger) (Place, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return Place{}, ErrMissingID
	}
	if strings.TrimSpace(rec.Nome) == "" {
		return Place{}, fmt.Errorf("%w: %s", ErrMissingName, id)
	}

	p := Place{
		ID:          id,
		Name:        rec.Nome,
		Description: rec.Descricao,
		Category:    rec.Tipo,
		IsFree:      rec.Gratuito,
		Images:      normalizeImages(rec.Imagens, rec.Imagem),
		Hours:       rec.Horario,
		Fee:         rec.Taxa,
		Difficulty:  rec.Dificuldade,
		Tips:        rec.Dicas,
		Trivia:      rec.Curiosidades,
		Keywords:    rec.PalavrasChave,
	}

	if loc := rec.Localizacao; loc != nil {
		if loc.Latitude == nil || loc.Longitude == nil {
			logger.Warn("place location incomplete, treating as absent", "place_id", id)
		} else {
			c := geo.Coordinate{Latitude: *loc.Latitude, Longitude: *loc.Longitude}
			if err := c.Validate(); err != nil {
				logger.Warn("place location invalid, treating as absent", "place_id", id, "error", err)
			} else {
				p.Location = &c
				p.Geohash = geo.Geohash(c, geo.DefaultPrecision)
			}
		}
	}

	return p, nil
}

// normalizeImages migrates the legacy single-image field. The list wins when
// non-empty, then the single reference, otherwise there are no images.
func normalizeImages(list []string, legacy string) []string {
	out := make([]string, 0, len(list))
	for _, img := range list {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	if len(out) > 0 {
		return out
	}
	if legacy = strings.TrimSpace(legacy); legacy != "" {
		return []string{legacy}
	}
	return []string{}
}
