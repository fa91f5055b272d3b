// Package catalog loads the product catalog from a YAML file at process
// start. The repository is read-only for the engine's entire lifetime;
// iteration order is the file order.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/catalog"
)

// productRow is the YAML representation of one catalog entry.
type productRow struct {
	Class    string  `yaml:"class"`
	Name     string  `yaml:"name"`
	Barcode  string  `yaml:"barcode"`
	Price    float64 `yaml:"price"`
	Category string  `yaml:"category"`
	Brand    string  `yaml:"brand"`
	Unit     string  `yaml:"unit"`
	Weight   string  `yaml:"weight"`
	Stock    int     `yaml:"stock"`
}

type catalogFile struct {
	Products []productRow `yaml:"products"`
}

// Repo is the in-memory catalog. Safe for concurrent reads; never mutated
// after Load.
type Repo struct {
	entries   []catalog.Entry
	byClass   map[string]int
	byBarcode map[string]int
}

// Load reads the catalog file and builds the lookup indexes.
func Load(path string) (*Repo, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("%w: catalog %s has no products", domain.ErrInvalidConfiguration, path)
	}

	return New(rowsToEntries(file.Products))
}

// New builds a catalog repository from already-constructed entries,
// preserving their order.
func New(entries []catalog.Entry) (*Repo, error) {
	r := &Repo{
		entries:   entries,
		byClass:   make(map[string]int, len(entries)),
		byBarcode: make(map[string]int, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.ClassID() == "" || e.DisplayName() == "" {
			return nil, fmt.Errorf("%w: catalog entry %d is missing class or name",
				domain.ErrInvalidConfiguration, i)
		}
		if _, dup := r.byClass[e.ClassID()]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog class %q",
				domain.ErrInvalidConfiguration, e.ClassID())
		}
		r.byClass[e.ClassID()] = i
		if e.Barcode() != "" {
			r.byBarcode[e.Barcode()] = i
		}
	}
	return r, nil
}

func rowsToEntries(rows []productRow) []catalog.Entry {
	entries := make([]catalog.Entry, len(rows))
	for i, p := range rows {
		entries[i] = catalog.NewEntry(
			p.Class, p.Name, p.Barcode, p.Price,
			p.Category, p.Brand, p.Unit, p.Weight, p.Stock,
		)
	}
	return entries
}

// Lookup returns the entry for a detection class identifier.
func (r *Repo) Lookup(classID string) (catalog.Entry, bool) {
	i, ok := r.byClass[classID]
	if !ok {
		return catalog.Entry{}, false
	}
	return r.entries[i], true
}

// LookupBarcode returns the entry for a scanned barcode.
func (r *Repo) LookupBarcode(barcode string) (catalog.Entry, bool) {
	i, ok := r.byBarcode[barcode]
	if !ok {
		return catalog.Entry{}, false
	}
	return r.entries[i], true
}

// All returns every entry in catalog (file) order. Callers must not mutate
// the returned slice.
func (r *Repo) All() []catalog.Entry {
	return r.entries
}

// Len returns the number of catalog entries.
func (r *Repo) Len() int { return len(r.entries) }

// Categories returns category names with product counts, in first-seen order.
func (r *Repo) Categories() []Group {
	return r.groupBy(func(e *catalog.Entry) string { return e.Category() })
}

// Brands returns brand names with product counts, in first-seen order.
// Entries without a brand are grouped under "Unknown".
func (r *Repo) Brands() []Group {
	return r.groupBy(func(e *catalog.Entry) string {
		if e.Brand() == "" {
			return "Unknown"
		}
		return e.Brand()
	})
}

// Group is a named rollup of catalog entries.
type Group struct {
	Name         string
	ProductCount int
}

func (r *Repo) groupBy(key func(*catalog.Entry) string) []Group {
	idx := make(map[string]int)
	var groups []Group
	for i := range r.entries {
		k := key(&r.entries[i])
		j, ok := idx[k]
		if !ok {
			idx[k] = len(groups)
			groups = append(groups, Group{Name: k})
			j = len(groups) - 1
		}
		groups[j].ProductCount++
	}
	return groups
}

// Rollup aggregates stock and value for a category or brand.
type Rollup struct {
	Products int
	Items    int
	Value    float64
}

// Summary is an inventory overview for the stats endpoint.
type Summary struct {
	TotalProducts int
	TotalItems    int
	TotalValue    float64
	AveragePrice  float64
	Categories    map[string]Rollup
	Brands        map[string]Rollup
}

// Summarize computes the inventory summary over the whole catalog.
func (r *Repo) Summarize() Summary {
	s := Summary{
		TotalProducts: len(r.entries),
		Categories:    make(map[string]Rollup),
		Brands:        make(map[string]Rollup),
	}
	for i := range r.entries {
		e := &r.entries[i]
		value := e.Price() * float64(e.Stock())
		s.TotalItems += e.Stock()
		s.TotalValue += value

		c := s.Categories[e.Category()]
		c.Products++
		c.Items += e.Stock()
		c.Value += value
		s.Categories[e.Category()] = c

		brand := e.Brand()
		if brand == "" {
			brand = "Unknown"
		}
		b := s.Brands[brand]
		b.Products++
		b.Items += e.Stock()
		b.Value += value
		s.Brands[brand] = b
	}
	if s.TotalItems > 0 {
		s.AveragePrice = s.TotalValue / float64(s.TotalItems)
	}
	return s
}
