package editor

import "sort"

// Pool bounds how many hosts are mounted at once. Activating an item past the
// cap releases the least recently used other host; the displaced item loses
// its surface, not its content, which already lives in session state.
type Pool struct {
	max   int
	hosts map[string]*Host
	used  map[string]int64
	tick  int64
}

// NewPool returns a Pool holding at most max hosts. max < 1 is raised to 1.
func NewPool(max int) *Pool {
	if max < 1 {
		max = 1
	}
	return &Pool{
		max:   max,
		hosts: make(map[string]*Host),
		used:  make(map[string]int64),
	}
}

// Activate returns the host for id, building one on first use. When the pool
// is full the least recently used other host is released first; its id comes
// back in released so the caller can update its chrome.
func (p *Pool) Activate(id string, build func() *Host) (h *Host, released string) {
	p.tick++
	if h, ok := p.hosts[id]; ok {
		p.used[id] = p.tick
		return h, ""
	}
	if len(p.hosts) >= p.max {
		released = p.lruExcept(id)
		if released != "" {
			p.hosts[released].Release()
			delete(p.hosts, released)
			delete(p.used, released)
		}
	}
	h = build()
	p.hosts[id] = h
	p.used[id] = p.tick
	return h, released
}

func (p *Pool) lruExcept(id string) string {
	var victim string
	var oldest int64
	for hid, t := range p.used {
		if hid == id {
			continue
		}
		if victim == "" || t < oldest {
			victim = hid
			oldest = t
		}
	}
	return victim
}

// Get returns the mounted host for id, or nil. Recency is not updated.
func (p *Pool) Get(id string) *Host { return p.hosts[id] }

// Touch marks id as most recently used.
func (p *Pool) Touch(id string) {
	if _, ok := p.hosts[id]; ok {
		p.tick++
		p.used[id] = p.tick
	}
}

// Release unmounts the host for id, if mounted.
func (p *Pool) Release(id string) {
	if h, ok := p.hosts[id]; ok {
		h.Release()
		delete(p.hosts, id)
		delete(p.used, id)
	}
}

// ReleaseAll unmounts every host.
func (p *Pool) ReleaseAll() {
	for id, h := range p.hosts {
		h.Release()
		delete(p.hosts, id)
		delete(p.used, id)
	}
}

// ActiveIDs returns the mounted ids, least recently used first, so
// re-activating them in order reproduces the same recency.
func (p *Pool) ActiveIDs() []string {
	ids := make([]string, 0, len(p.hosts))
	for id := range p.hosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return p.used[ids[i]] < p.used[ids[j]] })
	return ids
}

// Len returns how many hosts are mounted.
func (p *Pool) Len() int { return len(p.hosts) }

// Max returns the pool's capacity.
func (p *Pool) Max() int { return p.max }
