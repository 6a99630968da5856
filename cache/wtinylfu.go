package cache

const (
	WINDOW = iota
	PROBATION
	PROTECTED
)

// WinTinyLFU keeps a small LRU window in front of a segmented LRU. A key
// leaving the window only enters the main area when the sketch estimates it
// is more popular than the main area's eviction victim.
type WinTinyLFU struct {
	data      map[string]*sNode
	winLRU    *List
	slru      *segmentedLRU
	cmSketch  *cmSketch
	winCap    int
	w         int
	threshold int
}

func NewWinTinyLFU(capacity int) *WinTinyLFU {
	if capacity < 1 {
		capacity = 1
	}
	winCap := capacity / 100
	if winCap < 1 {
		winCap = 1
	}
	return &WinTinyLFU{
		data:      make(map[string]*sNode),
		winLRU:    newList(),
		slru:      newSLRU(capacity - winCap),
		cmSketch:  newCmSketch(int64(capacity)),
		winCap:    winCap,
		threshold: capacity * 10,
	}
}

func (w *WinTinyLFU) record(key string) {
	w.cmSketch.Increment(key)
	w.w++
	if w.w >= w.threshold {
		w.cmSketch.Halve()
		w.w = 0
	}
}

func (w *WinTinyLFU) Get(key string) interface{} {
	w.record(key)
	sn, ok := w.data[key]
	if !ok {
		return nil
	}
	w.touch(sn)
	return sn.node.value
}

func (w *WinTinyLFU) touch(sn *sNode) {
	switch sn.status {
	case WINDOW:
		w.winLRU.move2Head(sn.node)
	case PROBATION:
		sn.status = PROTECTED
		if demoted := w.slru.promote(sn.node); demoted != nil {
			w.data[demoted.key].status = PROBATION
		}
	case PROTECTED:
		w.slru.protected.move2Head(sn.node)
	}
}

func (w *WinTinyLFU) Put(key string, value interface{}) {
	if sn, ok := w.data[key]; ok {
		sn.node.value = value
		w.touch(sn)
		return
	}
	w.record(key)

	sn := &sNode{node: &Node{key: key, value: value}, status: WINDOW}
	w.winLRU.Put2Head(sn.node)
	w.data[key] = sn
	if w.winLRU.Len() <= w.winCap {
		return
	}

	candidate := w.winLRU.RemoveLast()
	if !w.slru.full() {
		w.data[candidate.key].status = PROBATION
		w.slru.add(candidate)
		return
	}
	victim, status := w.slru.victim()
	if victim == nil || w.cmSketch.Estimate(candidate.key) <= w.cmSketch.Estimate(victim.key) {
		delete(w.data, candidate.key)
		return
	}
	w.slru.remove(victim, status)
	delete(w.data, victim.key)
	w.data[candidate.key].status = PROBATION
	w.slru.add(candidate)
}

func (w *WinTinyLFU) Len() int {
	return len(w.data)
}
