package zone

import (
	"gonum.org/v1/gonum/mat"
)

// Vertex is a point in fractional (row, col) index space of a field.
type Vertex struct {
	Row, Col float64
}

// Contour is an ordered iso-line. Closed contours repeat their first vertex
// at the end.
type Contour []Vertex

// Closed reports whether the contour ends where it starts.
func (c Contour) Closed() bool {
	return len(c) > 2 && c[0] == c[len(c)-1]
}

// edgeKey identifies a grid edge. A horizontal edge joins (i, j) and
// (i, j+1); a vertical edge joins (i, j) and (i+1, j).
type edgeKey struct {
	horizontal bool
	i, j       int
}

type segment struct {
	a, b edgeKey
}

// cell edges
const (
	top = iota
	right
	bottom
	left
)

// segmentTable lists edge pairs per marching-squares case. Corner bits:
// top-left 8, top-right 4, bottom-right 2, bottom-left 1. Saddles 5 and 10
// are resolved separately.
var segmentTable = [16][][2]int{
	0:  nil,
	1:  {{left, bottom}},
	2:  {{bottom, right}},
	3:  {{left, right}},
	4:  {{top, right}},
	6:  {{top, bottom}},
	7:  {{left, top}},
	8:  {{left, top}},
	9:  {{top, bottom}},
	11: {{top, right}},
	12: {{left, right}},
	13: {{bottom, right}},
	14: {{left, bottom}},
	15: nil,
}

// Contours traces every iso-line of field at level using marching squares.
// Cells at or above level are inside. Output order is deterministic: open
// contours first, in row-major order of their first cell, then closed ones.
func Contours(field mat.Matrix, level float64) []Contour {
	rows, cols := field.Dims()
	if rows < 2 || cols < 2 {
		return nil
	}

	inside := func(i, j int) bool { return field.At(i, j) >= level }

	points := make(map[edgeKey]Vertex)
	crossing := func(k edgeKey) {
		if _, ok := points[k]; ok {
			return
		}
		v0 := field.At(k.i, k.j)
		var v1 float64
		if k.horizontal {
			v1 = field.At(k.i, k.j+1)
		} else {
			v1 = field.At(k.i+1, k.j)
		}
		t := (level - v0) / (v1 - v0)
		if k.horizontal {
			points[k] = Vertex{Row: float64(k.i), Col: float64(k.j) + t}
		} else {
			points[k] = Vertex{Row: float64(k.i) + t, Col: float64(k.j)}
		}
	}

	var segs []segment
	for i := range rows - 1 {
		for j := range cols - 1 {
			idx := 0
			if inside(i, j) {
				idx |= 8
			}
			if inside(i, j+1) {
				idx |= 4
			}
			if inside(i+1, j+1) {
				idx |= 2
			}
			if inside(i+1, j) {
				idx |= 1
			}

			edges := segmentTable[idx]
			if idx == 5 || idx == 10 {
				center := (field.At(i, j) + field.At(i, j+1) + field.At(i+1, j+1) + field.At(i+1, j)) / 4
				connected := center >= level
				switch {
				case idx == 5 && connected, idx == 10 && !connected:
					edges = [][2]int{{left, top}, {bottom, right}}
				default:
					edges = [][2]int{{left, bottom}, {top, right}}
				}
			}

			for _, e := range edges {
				a, b := cellEdge(i, j, e[0]), cellEdge(i, j, e[1])
				crossing(a)
				crossing(b)
				segs = append(segs, segment{a: a, b: b})
			}
		}
	}

	return join(segs, points)
}

func cellEdge(i, j, side int) edgeKey {
	switch side {
	case top:
		return edgeKey{horizontal: true, i: i, j: j}
	case bottom:
		return edgeKey{horizontal: true, i: i + 1, j: j}
	case left:
		return edgeKey{horizontal: false, i: i, j: j}
	default:
		return edgeKey{horizontal: false, i: i, j: j + 1}
	}
}

// join links segments sharing an edge crossing into polylines. Every
// crossing belongs to at most two segments, so the links form simple paths
// and cycles.
func join(segs []segment, points map[edgeKey]Vertex) []Contour {
	adj := make(map[edgeKey][]int, len(points))
	for n, s := range segs {
		adj[s.a] = append(adj[s.a], n)
		adj[s.b] = append(adj[s.b], n)
	}

	visited := make([]bool, len(segs))
	walk := func(start edgeKey, first int) Contour {
		path := Contour{points[start]}
		cur, seg := start, first
		for {
			visited[seg] = true
			next := segs[seg].a
			if next == cur {
				next = segs[seg].b
			}
			path = append(path, points[next])

			found := -1
			for _, cand := range adj[next] {
				if !visited[cand] {
					found = cand
					break
				}
			}
			if found < 0 {
				return path
			}
			cur, seg = next, found
		}
	}

	var out []Contour
	for n, s := range segs {
		if visited[n] {
			continue
		}
		switch {
		case len(adj[s.a]) == 1:
			out = append(out, walk(s.a, n))
		case len(adj[s.b]) == 1:
			out = append(out, walk(s.b, n))
		}
	}
	for n, s := range segs {
		if visited[n] {
			continue
		}
		out = append(out, walk(s.a, n))
	}
	return out
}
