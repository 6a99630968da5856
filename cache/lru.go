package cache

// LRU evicts the least recently used key once capacity is reached.
type LRU struct {
	m        map[string]*Node
	list     *List
	capacity int
}

func NewLRUReplacer(capacity int) Replacer {
	return &LRU{
		m:        make(map[string]*Node),
		list:     newList(),
		capacity: capacity,
	}
}

func (lru *LRU) Get(key string) interface{} {
	if node, ok := lru.m[key]; ok {
		lru.list.move2Head(node)
		return node.value
	}
	return nil
}

func (lru *LRU) Put(key string, value interface{}) {
	if lru.capacity <= 0 {
		return
	}
	if node, ok := lru.m[key]; ok {
		node.value = value
		lru.list.move2Head(node)
		return
	}
	if len(lru.m) >= lru.capacity {
		removed := lru.list.RemoveLast()
		delete(lru.m, removed.key)
	}
	newNode := &Node{
		key:   key,
		value: value,
	}
	lru.list.Put2Head(newNode)
	lru.m[key] = newNode
}

func (lru *LRU) Len() int {
	return len(lru.m)
}
