package utils

import "math/rand"

// SkipList is a sorted map from uint64 keys to values. It is not safe for
// concurrent use.
type SkipList struct {
	arena     *Arena
	maxHeight int
	length    int
	rand      *rand.Rand
}

func NewSkipList() *SkipList {
	return &SkipList{
		arena:     NewArena(1024),
		maxHeight: 1,
		rand:      NewRand(),
	}
}

// findLess fills prev with the last node at each level whose key is strictly
// less than key and returns the level 0 predecessor.
func (list *SkipList) findLess(key uint64, prev *[kMaxHeight]uint32) uint32 {
	p := headNode
	for i := kMaxHeight - 1; i >= 0; i-- {
		for {
			next := list.arena.getNode(p).next[i]
			n := list.arena.getNode(next)
			if n.kind != kindNormal || n.key >= key {
				break
			}
			p = next
		}
		if prev != nil {
			prev[i] = p
		}
	}
	return p
}

// Add inserts key or overwrites its value in place. It returns the replaced
// value and whether the key already existed.
func (list *SkipList) Add(key uint64, v Value) (Value, bool) {
	var prev [kMaxHeight]uint32
	p := list.findLess(key, &prev)
	next := list.arena.getNode(list.arena.getNode(p).next[0])
	if next.kind == kindNormal && next.key == key {
		old := next.value
		next.value = v
		return old, true
	}

	height := list.randomHeight()
	if height > list.maxHeight {
		list.maxHeight = height
	}
	x := list.arena.putNode(key, v, height)
	for i := 0; i < height; i++ {
		list.arena.getNode(x).next[i] = list.arena.getNode(prev[i]).next[i]
		list.arena.getNode(prev[i]).next[i] = x
	}
	list.length++
	return Value{}, false
}

// Search returns a handle to the node holding key, or 0 when it is absent.
// The handle stays valid until the list is discarded.
func (list *SkipList) Search(key uint64) uint32 {
	p := list.findLess(key, nil)
	next := list.arena.getNode(p).next[0]
	n := list.arena.getNode(next)
	if n.kind == kindNormal && n.key == key {
		return next
	}
	return nilNode
}

// Value returns the value behind a handle from Search.
func (list *SkipList) Value(handle uint32) Value {
	return list.arena.getNode(handle).value
}

// SetValue replaces the value behind a handle from Search and returns the old one.
func (list *SkipList) SetValue(handle uint32, v Value) Value {
	n := list.arena.getNode(handle)
	old := n.value
	n.value = v
	return old
}

// Scan returns the entries with key1 <= key <= key2 in ascending order.
func (list *SkipList) Scan(key1, key2 uint64) []Entry {
	var res []Entry
	if key1 > key2 {
		return res
	}
	p := list.findLess(key1, nil)
	for x := list.arena.getNode(p).next[0]; ; {
		n := list.arena.getNode(x)
		if n.kind != kindNormal || n.key > key2 {
			break
		}
		res = append(res, Entry{Key: n.key, Value: n.value})
		x = n.next[0]
	}
	return res
}

// Len returns the number of keys.
func (list *SkipList) Len() int {
	return list.length
}

// GetMaxHeight returns the tallest tower built so far.
func (list *SkipList) GetMaxHeight() int {
	return list.maxHeight
}

func (list *SkipList) randomHeight() int {
	h := 1
	for h < kMaxHeight && list.rand.Intn(2) == 0 {
		h++
	}
	return h
}

// SkipListIterator walks the bottom level in key order.
type SkipListIterator struct {
	list *SkipList
	curr uint32
}

func (list *SkipList) NewIterator() *SkipListIterator {
	return &SkipListIterator{list: list, curr: headNode}
}

// Rewind positions the iterator on the smallest key.
func (iter *SkipListIterator) Rewind() {
	iter.curr = iter.list.arena.getNode(headNode).next[0]
}

func (iter *SkipListIterator) Valid() bool {
	return iter.list.arena.getNode(iter.curr).kind == kindNormal
}

func (iter *SkipListIterator) Next() {
	iter.curr = iter.list.arena.getNode(iter.curr).next[0]
}

func (iter *SkipListIterator) Item() Entry {
	n := iter.list.arena.getNode(iter.curr)
	return Entry{Key: n.key, Value: n.value}
}
