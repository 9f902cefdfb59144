package cluster

import "math"

type cellKey struct {
	cx, cy int64
}

// gridIndex buckets placed points into square cells one radius wide, so a
// radius query only has to look at the 3x3 block around the query cell.
type gridIndex struct {
	cellSize float64
	cells    map[cellKey][]int
}

func newGridIndex(points []point, cellSize float64) *gridIndex {
	g := &gridIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int, len(points)/4+1),
	}
	for i, p := range points {
		k := g.key(p.x, p.y)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *gridIndex) key(x, y float64) cellKey {
	return cellKey{
		cx: int64(math.Floor(x / g.cellSize)),
		cy: int64(math.Floor(y / g.cellSize)),
	}
}

// near appends to buf every indexed point in the cells around (x, y).
func (g *gridIndex) near(x, y float64, buf []int) []int {
	k := g.key(x, y)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			buf = append(buf, g.cells[cellKey{k.cx + dx, k.cy + dy}]...)
		}
	}
	return buf
}
