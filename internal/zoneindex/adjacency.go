// Public domain.

package zoneindex

import "sort"

// Graph is zone adjacency, neighbor lists are sorted.
type Graph map[int][]int

// Adjacency returns the zones sharing an edge or a corner with each zone.
// RA wraps around.  A polar zone touches every zone in the row next to it.
func (x *Index) Adjacency() Graph {
	w := x.Width()
	set := map[int]map[int]bool{}
	add := func(a, b int) {
		if a == b {
			return
		}
		if set[a] == nil {
			set[a] = map[int]bool{}
		}
		if set[b] == nil {
			set[b] = map[int]bool{}
		}
		set[a][b] = true
		set[b][a] = true
	}
	cells := make([][]int, w)
	for j := range cells {
		cells[j] = make([]int, w)
		for i := range cells[j] {
			cells[j][i] = x.Cell(i, j)
		}
	}
	for j := 0; j < w; j++ {
		for i := 0; i < w; i++ {
			a := cells[j][i]
			for dj := -1; dj <= 1; dj++ {
				jj := j + dj
				if jj < 0 || jj >= w {
					continue
				}
				for di := -1; di <= 1; di++ {
					add(a, cells[jj][(i+di+w)%w])
				}
			}
		}
	}
	g := Graph{}
	for _, id := range x.ids {
		ns := make([]int, 0, len(set[id]))
		for n := range set[id] {
			ns = append(ns, n)
		}
		sort.Ints(ns)
		g[id] = ns
	}
	return g
}
