package l2track

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// trackNode is a kd-tree entry carrying the index of its track point.
type trackNode struct {
	x, y float64
	idx  int
}

func (p trackNode) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(trackNode)
	switch d {
	case 0:
		return p.x - q.x
	case 1:
		return p.y - q.y
	default:
		panic("illegal dimension")
	}
}

func (p trackNode) Dims() int { return 2 }

// Distance is the squared Euclidean distance.
func (p trackNode) Distance(c kdtree.Comparable) float64 {
	q := c.(trackNode)
	dx := p.x - q.x
	dy := p.y - q.y
	return dx*dx + dy*dy
}

type trackNodes []trackNode

func (p trackNodes) Index(i int) kdtree.Comparable { return p[i] }
func (p trackNodes) Len() int                      { return len(p) }
func (p trackNodes) Pivot(d kdtree.Dim) int {
	return nodePlane{trackNodes: p, Dim: d}.Pivot()
}
func (p trackNodes) Slice(start, end int) kdtree.Interface { return p[start:end] }

// nodePlane sorts trackNodes along one dimension for median selection.
type nodePlane struct {
	kdtree.Dim
	trackNodes
}

func (p nodePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.trackNodes[i].x < p.trackNodes[j].x
	case 1:
		return p.trackNodes[i].y < p.trackNodes[j].y
	default:
		panic("illegal dimension")
	}
}
func (p nodePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.trackNodes = p.trackNodes[start:end]
	return p
}
func (p nodePlane) Swap(i, j int) {
	p.trackNodes[i], p.trackNodes[j] = p.trackNodes[j], p.trackNodes[i]
}

// pointIndex answers nearest-point queries over a fixed point set.
type pointIndex struct {
	tree *kdtree.Tree
}

func newPointIndex(xs, ys []float64) *pointIndex {
	nodes := make(trackNodes, len(xs))
	for i := range xs {
		nodes[i] = trackNode{x: xs[i], y: ys[i], idx: i}
	}
	// kdtree.New reorders its input in place; nodes is already a private copy.
	return &pointIndex{tree: kdtree.New(nodes, false)}
}

// nearest returns the index of the closest point and its squared distance.
func (ix *pointIndex) nearest(x, y float64) (int, float64) {
	c, d := ix.tree.Nearest(trackNode{x: x, y: y})
	if c == nil {
		return -1, 0
	}
	return c.(trackNode).idx, d
}

// nearestOther returns the squared distance from point idx to its nearest
// distinct neighbour, or false when the set has a single point.
func (ix *pointIndex) nearestOther(x, y float64, idx int) (float64, bool) {
	keeper := kdtree.NewNKeeper(2)
	ix.tree.NearestSet(keeper, trackNode{x: x, y: y, idx: idx})
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		if cd.Comparable.(trackNode).idx == idx {
			continue
		}
		return cd.Dist, true
	}
	return 0, false
}
