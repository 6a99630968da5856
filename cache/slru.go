package cache

// segmentedLRU is the main area of the W-TinyLFU cache. New arrivals enter
// probation, a second hit promotes them to protected.
type segmentedLRU struct {
	protected    *List
	probation    *List
	protectedCap int
	probationCap int
}

type sNode struct {
	node   *Node
	status int
}

func newSLRU(capacity int) *segmentedLRU {
	protectedCap := capacity * 8 / 10
	return &segmentedLRU{
		probation:    newList(),
		protected:    newList(),
		protectedCap: protectedCap,
		probationCap: capacity - protectedCap,
	}
}

func (slru *segmentedLRU) Len() int {
	return slru.probation.Len() + slru.protected.Len()
}

func (slru *segmentedLRU) full() bool {
	return slru.Len() >= slru.protectedCap+slru.probationCap
}

// victim is the node evicted if a newcomer is admitted: the probation tail,
// or the protected tail while probation is empty.
func (slru *segmentedLRU) victim() (*Node, int) {
	if n := slru.probation.Back(); n != nil {
		return n, PROBATION
	}
	if n := slru.protected.Back(); n != nil {
		return n, PROTECTED
	}
	return nil, PROBATION
}

func (slru *segmentedLRU) remove(node *Node, status int) *Node {
	if status == PROBATION {
		return slru.probation.Remove(node)
	}
	return slru.protected.Remove(node)
}

func (slru *segmentedLRU) add(node *Node) {
	slru.probation.Put2Head(node)
}

// promote moves node from probation to protected. When protected overflows its
// tail is demoted back to probation and returned.
func (slru *segmentedLRU) promote(node *Node) *Node {
	slru.probation.Remove(node)
	slru.protected.Put2Head(node)
	if slru.protected.Len() <= slru.protectedCap {
		return nil
	}
	demoted := slru.protected.RemoveLast()
	slru.probation.Put2Head(demoted)
	return demoted
}
