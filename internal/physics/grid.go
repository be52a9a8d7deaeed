package physics

import (
	"math"
	"slices"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
)

// cellSize is the broadphase cell edge in world units.
const cellSize = 4.0

type cellKey struct {
	cx int32
	cy int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

// grid buckets bounding boxes into square cells so overlap tests only compare
// boxes that share a cell. Entries are indices into the caller's body slice.
// Accessed only from Step; no locks.
type grid struct {
	cells map[cellKey][]int
}

func newGrid() *grid {
	return &grid{cells: make(map[cellKey][]int)}
}

func (g *grid) reset() { clear(g.cells) }

// Add places box i into every cell its bounds touch.
func (g *grid) Add(i int, b geom.Bounds) {
	for cx := toCell(b.MinX); cx <= toCell(b.MaxX); cx++ {
		for cy := toCell(b.MinY); cy <= toCell(b.MaxY); cy++ {
			k := cellKey{cx, cy}
			g.cells[k] = append(g.cells[k], i)
		}
	}
}

// Candidates returns every index pair sharing at least one cell, i < j, in
// ascending order. Caller does the exact overlap test.
func (g *grid) Candidates() [][2]int {
	seen := make(map[[2]int]struct{})
	var out [][2]int
	for _, cell := range g.cells {
		for x := 0; x < len(cell); x++ {
			for y := x + 1; y < len(cell); y++ {
				p := [2]int{min(cell[x], cell[y]), max(cell[x], cell[y])}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	return out
}
