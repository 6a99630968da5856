package cache

import (
	"strconv"

	"lsmkv/utils"
)

// Cache holds decoded table values keyed by table path and index slot.
type Cache struct {
	values   Replacer
	policy   string
	capacity int
	hits     uint64
	misses   uint64
}

// NewCache returns a value cache. A capacity of 0 disables caching.
func NewCache(policy string, capacity int) *Cache {
	c := &Cache{policy: policy, capacity: capacity}
	c.Reset()
	return c
}

func valueKey(path string, slot int) string {
	return path + "#" + strconv.Itoa(slot)
}

func (c *Cache) GetValue(path string, slot int) (utils.Value, bool) {
	if c.values == nil {
		return utils.Value{}, false
	}
	if v := c.values.Get(valueKey(path, slot)); v != nil {
		c.hits++
		return v.(utils.Value), true
	}
	c.misses++
	return utils.Value{}, false
}

func (c *Cache) AddValue(path string, slot int, v utils.Value) {
	if c.values == nil {
		return
	}
	c.values.Put(valueKey(path, slot), v)
}

// Reset drops every cached value. Hit and miss counts are kept.
func (c *Cache) Reset() {
	if c.capacity <= 0 {
		c.values = nil
		return
	}
	c.values = NewReplacer(c.policy, c.capacity)
}

func (c *Cache) Len() int {
	if c.values == nil {
		return 0
	}
	return c.values.Len()
}

func (c *Cache) Hits() uint64   { return c.hits }
func (c *Cache) Misses() uint64 { return c.misses }
