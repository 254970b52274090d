package depot

// Node is one condition node, keyed by its basic-block address in the
// owning Depot's node map. It carries no back-pointers; children and
// belongs are foreign-key sets per spec.md's arena-storage guidance.
type Node struct {
	Addr      uint64
	MinDist   int
	Condition Condition
	Children  map[uint64]struct{}
	Belongs   map[string]struct{}
}

func newNode(addr uint64, cond Condition, dist int) *Node {
	return &Node{
		Addr:      addr,
		MinDist:   dist,
		Condition: cond,
		Children:  make(map[uint64]struct{}),
		Belongs:   make(map[string]struct{}),
	}
}

// Covered reports whether every successor of this node has been observed.
func (n *Node) Covered() bool {
	return n.Condition.SuccessorCount > 0 && len(n.Children) >= n.Condition.SuccessorCount
}

func (n *Node) addChild(dest uint64) {
	n.Children[dest] = struct{}{}
}

func (n *Node) addBelongs(seed string) {
	n.Belongs[seed] = struct{}{}
}

func (n *Node) updateMinDist(dist int) {
	if dist < n.MinDist {
		n.MinDist = dist
	}
}
