// Package receptor indexes sensitive receptors (schools, hospitals, care
// homes) so that the ones inside a threat zone can be listed quickly.
package receptor

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/dhconnelly/rtreego"
)

const (
	tolerance   = 1e-7 // degrees, point-to-rect padding
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// Receptor is a fixed location whose occupants need protective action.
type Receptor struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population,omitempty"`
}

// indexed wraps a receptor to implement rtreego.Spatial.
type indexed struct {
	Receptor
	rect *rtreego.Rect
}

func (ix *indexed) Bounds() *rtreego.Rect {
	return ix.rect
}

// Index is a read-mostly R-tree over receptors keyed by (lon, lat).
type Index struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

// NewIndex builds an index over the given receptors.
func NewIndex(receptors []Receptor) *Index {
	ix := &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
	ix.Insert(receptors...)
	return ix
}

// Insert adds receptors to the index.
func (ix *Index) Insert(receptors ...Receptor) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range receptors {
		p := rtreego.Point{r.Lon, r.Lat}
		ix.tree.Insert(&indexed{Receptor: r, rect: p.ToRect(tolerance)})
		ix.size++
	}
}

// Len returns the number of indexed receptors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// Within returns the receptors inside or on the boundary of poly, sorted by
// ID. Coordinates are (lon, lat).
func (ix *Index) Within(poly geom.Polygonal) ([]Receptor, error) {
	b := poly.Bounds()
	if b == nil {
		return nil, nil
	}
	lengths := []float64{
		max(b.Max.X-b.Min.X, tolerance),
		max(b.Max.Y-b.Min.Y, tolerance),
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y}, lengths)
	if err != nil {
		return nil, fmt.Errorf("receptor query bounds: %w", err)
	}

	ix.mu.RLock()
	candidates := ix.tree.SearchIntersect(rect)
	ix.mu.RUnlock()

	var out []Receptor
	for _, c := range candidates {
		r := c.(*indexed).Receptor
		if (geom.Point{X: r.Lon, Y: r.Lat}).Within(poly) != geom.Outside {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadFile reads a JSON array of receptors.
func LoadFile(path string) ([]Receptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receptors: %w", err)
	}
	var receptors []Receptor
	if err := json.Unmarshal(data, &receptors); err != nil {
		return nil, fmt.Errorf("decode receptors %s: %w", path, err)
	}
	for i, r := range receptors {
		if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
			return nil, fmt.Errorf("receptor %d (%s): coordinates out of range", i, r.ID)
		}
	}
	return receptors, nil
}
