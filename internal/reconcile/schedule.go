// Public domain.

package reconcile

import (
	"sort"

	"github.com/soniakeys/apass/internal/zoneindex"
)

// Schedule groups zones into waves that can be reconciled concurrently.
// Two zones in one wave are never adjacent and never share a neighbor, so
// their lock sets are disjoint.  The polar zones go first, then the rows
// next to them, then the rest.  Zones missing from g are ignored.
func Schedule(g zoneindex.Graph, zones []int) [][]int {
	var polar, ring, rest []int
	nearPole := map[int]bool{}
	for _, p := range []int{zoneindex.North, zoneindex.South} {
		for _, n := range g[p] {
			nearPole[n] = true
		}
	}
	for _, id := range sorted(zones) {
		if _, ok := g[id]; !ok {
			continue
		}
		switch {
		case zoneindex.IsPolar(id):
			polar = append(polar, id)
		case nearPole[id]:
			ring = append(ring, id)
		default:
			rest = append(rest, id)
		}
	}
	var waves [][]int
	for _, phase := range [][]int{polar, ring, rest} {
		waves = append(waves, color(g, phase)...)
	}
	return waves
}

// color is first fit coloring of the square of g.  A wave keeps the union
// of the closed neighborhoods of its zones, a zone joins the first wave
// that its own closed neighborhood misses.
func color(g zoneindex.Graph, zones []int) [][]int {
	var waves [][]int
	var claimed []map[int]bool
next:
	for _, id := range zones {
		hood := append([]int{id}, g[id]...)
		for w, c := range claimed {
			if !meets(c, hood) {
				waves[w] = append(waves[w], id)
				for _, n := range hood {
					c[n] = true
				}
				continue next
			}
		}
		c := map[int]bool{}
		for _, n := range hood {
			c[n] = true
		}
		claimed = append(claimed, c)
		waves = append(waves, []int{id})
	}
	return waves
}

func meets(c map[int]bool, ids []int) bool {
	for _, id := range ids {
		if c[id] {
			return true
		}
	}
	return false
}

func sorted(ids []int) []int {
	s := append([]int(nil), ids...)
	sort.Ints(s)
	return s
}
