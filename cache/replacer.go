package cache

import "lsmkv/utils"

// Replacer is a bounded key/value map with an eviction policy. A nil result
// from Get is a miss.
type Replacer interface {
	Get(key string) interface{}
	Put(key string, value interface{})
	Len() int
}

// NewReplacer returns the replacer for policy, a utils.CachePolicy* name.
func NewReplacer(policy string, capacity int) Replacer {
	if policy == utils.CachePolicyLRU {
		return NewLRUReplacer(capacity)
	}
	return NewWinTinyLFU(capacity)
}

type Node struct {
	key   string
	value interface{}
	next  *Node
	prev  *Node
}

// List is a doubly linked list with sentinel head and tail, most recent first.
type List struct {
	head *Node
	tail *Node
	sz   int
}

func newList() *List {
	head := &Node{}
	tail := &Node{}
	head.next = tail
	tail.prev = head
	return &List{
		head: head,
		tail: tail,
	}
}

func (list *List) Remove(node *Node) *Node {
	list.sz--
	prev := node.prev
	next := node.next
	prev.next = next
	next.prev = prev
	node.prev = nil
	node.next = nil
	return node
}

// RemoveLast unlinks the least recent node, or returns nil when empty.
func (list *List) RemoveLast() *Node {
	if list.sz == 0 {
		return nil
	}
	return list.Remove(list.tail.prev)
}

func (list *List) Put2Head(node *Node) {
	list.sz++
	next := list.head.next
	node.next = next
	next.prev = node
	node.prev = list.head
	list.head.next = node
}

func (list *List) move2Head(node *Node) {
	list.Remove(node)
	list.Put2Head(node)
}

func (list *List) Len() int {
	return list.sz
}

// Back returns the least recent node, or nil when empty.
func (list *List) Back() *Node {
	if list.tail.prev == list.head {
		return nil
	}
	return list.tail.prev
}
