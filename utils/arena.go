package utils

const (
	kMaxHeight = 8

	// handle 0 is never allocated and doubles as the absent sentinel
	nilNode  uint32 = 0
	headNode uint32 = 1
	tailNode uint32 = 2
)

type nodeKind uint8

const (
	kindHead nodeKind = iota + 1
	kindNormal
	kindTail
)

// node is a skip list tower. Links are arena handles, not pointers.
type node struct {
	key    uint64
	value  Value
	kind   nodeKind
	height uint8
	next   [kMaxHeight]uint32
}

// Arena owns every node of one skip list.
type Arena struct {
	nodes []node
}

// NewArena returns an arena holding the reserved slot and the two sentinels.
func NewArena(capacity int) *Arena {
	arena := &Arena{
		nodes: make([]node, 3, capacity+3),
	}
	arena.nodes[headNode] = node{kind: kindHead, height: kMaxHeight}
	arena.nodes[tailNode] = node{kind: kindTail, height: kMaxHeight}
	for i := 0; i < kMaxHeight; i++ {
		arena.nodes[headNode].next[i] = tailNode
	}
	return arena
}

// putNode allocates a normal node. Pointers returned by getNode before this call are stale afterwards.
func (s *Arena) putNode(key uint64, v Value, height int) uint32 {
	s.nodes = append(s.nodes, node{
		key:    key,
		value:  v,
		kind:   kindNormal,
		height: uint8(height),
	})
	return uint32(len(s.nodes) - 1)
}

func (s *Arena) getNode(offset uint32) *node {
	return &s.nodes[offset]
}

// size returns the number of normal nodes.
func (s *Arena) size() int {
	return len(s.nodes) - 3
}
