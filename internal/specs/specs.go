package specs

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/foilscan/internal/model"
)

//go:embed table.yaml
var defaultTable []byte

// FrontWingsCollection is the catalog collection the table applies to.
const FrontWingsCollection = "front-wings"

// Spec is the geometry of one wing.
type Spec struct {
	Key         string
	Series      string
	Area        int
	AspectRatio float64
	Wingspan    int
}

type tableFile struct {
	Series []struct {
		Name  string `yaml:"name"`
		Wings []struct {
			Area        int     `yaml:"area"`
			AspectRatio float64 `yaml:"aspect_ratio"`
			Wingspan    int     `yaml:"wingspan"`
		} `yaml:"wings"`
	} `yaml:"series"`
}

// Table is an immutable set of wing specs keyed by "<Series> <area>".
// Lookups are case-insensitive.
type Table struct {
	entries map[string]Spec
	keys    []string
}

// Load parses a table from r.
func Load(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode spec table: %w", err)
	}

	t := &Table{entries: make(map[string]Spec)}
	for _, s := range f.Series {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: series without a name", ErrInvalidTable)
		}
		for _, w := range s.Wings {
			if w.Area <= 0 || w.AspectRatio <= 0 {
				return nil, fmt.Errorf("%w: %s has an entry without area or aspect ratio", ErrInvalidTable, s.Name)
			}
			spec := Spec{
				Key:         s.Name + " " + strconv.Itoa(w.Area),
				Series:      s.Name,
				Area:        w.Area,
				AspectRatio: w.AspectRatio,
				Wingspan:    w.Wingspan,
			}
			if spec.Wingspan == 0 {
				spec.Wingspan = w.Area
			}
			norm := normalize(spec.Key)
			if _, dup := t.entries[norm]; dup {
				return nil, fmt.Errorf("%w: duplicate entry %q", ErrInvalidTable, spec.Key)
			}
			t.entries[norm] = spec
			t.keys = append(t.keys, spec.Key)
		}
	}
	return t, nil
}

var loadDefault = sync.OnceValue(func() *Table {
	t, err := Load(bytes.NewReader(defaultTable))
	if err != nil {
		panic(fmt.Sprintf("embedded spec table: %v", err))
	}
	return t
})

// Default returns the embedded table.
func Default() *Table {
	return loadDefault()
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Get returns the entry stored under key.
func (t *Table) Get(key string) (Spec, bool) {
	s, ok := t.entries[normalize(key)]
	return s, ok
}

// Lookup returns the spec for a series and area, trying the plain series
// first and then its v2 generation.
func (t *Table) Lookup(series string, area int) (Spec, bool) {
	if series == "" || area <= 0 {
		return Spec{}, false
	}
	a := strconv.Itoa(area)
	if s, ok := t.Get(series + " " + a); ok {
		return s, true
	}
	return t.Get(series + " v2 " + a)
}

// LookupModel resolves a mention identifier such as "SPITFIRE 1180".
func (t *Table) LookupModel(name string) (Spec, bool) {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return Spec{}, false
	}
	area, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return t.Get(name)
	}
	if s, ok := t.Get(name); ok {
		return s, true
	}
	return t.Lookup(strings.Join(fields[:len(fields)-1], " "), area)
}

// Records returns every entry in table order.
func (t *Table) Records() []model.SpecRecord {
	out := make([]model.SpecRecord, 0, len(t.keys))
	for _, k := range t.keys {
		s := t.entries[normalize(k)]
		out = append(out, model.SpecRecord{Key: s.Key, AspectRatio: s.AspectRatio, Wingspan: s.Wingspan})
	}
	return out
}

// MergeResult lists the front wing titles that were and were not enriched.
type MergeResult struct {
	Matched   []string
	Unmatched []string
}

var aspectRatioSentence = regexp.MustCompile(`Aspect Ratio of (\d+\.?\d*)`)

// Merge sets aspect ratio and wingspan on every front wing in cat.
//
// A product is matched by its cleaned title, then by its parsed series and
// area, and finally by an "Aspect Ratio of X" sentence in its description,
// which yields the aspect ratio only.
func (t *Table) Merge(cat *model.Catalog) MergeResult {
	var res MergeResult
	if cat == nil {
		return res
	}
	col, ok := cat.Collections[FrontWingsCollection]
	if !ok {
		return res
	}

	for i := range col.Products {
		p := &col.Products[i]
		if s, ok := t.match(p); ok {
			p.Specs.AspectRatio = s.AspectRatio
			p.Specs.Wingspan = s.Wingspan
			res.Matched = append(res.Matched, p.Title)
			continue
		}
		if m := aspectRatioSentence.FindStringSubmatch(p.Description); m != nil {
			if ar, err := strconv.ParseFloat(m[1], 64); err == nil {
				p.Specs.AspectRatio = ar
				res.Matched = append(res.Matched, p.Title)
				continue
			}
		}
		res.Unmatched = append(res.Unmatched, p.Title)
	}
	cat.Collections[FrontWingsCollection] = col

	sort.Strings(res.Unmatched)
	return res
}

func (t *Table) match(p *model.ProductRecord) (Spec, bool) {
	if s, ok := t.Get(CleanName(p.Title)); ok {
		return s, true
	}
	return t.Lookup(p.Specs.Series, p.Specs.Area)
}

var titleNoise = []string{
	"AXIS ",
	" Carbon Hydrofoil Wing",
	" Ultra High Mod Reinforced",
	" Ultra High Modulus",
	"Hydrofoil wing",
}

// CleanName strips vendor and marketing words from a product title,
// leaving a key such as "Spitfire 1180".
func CleanName(title string) string {
	name := title
	for _, noise := range titleNoise {
		name = strings.ReplaceAll(name, noise, "")
	}
	name = strings.ReplaceAll(name, " - ", " ")
	return strings.TrimSpace(name)
}

func normalize(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}
