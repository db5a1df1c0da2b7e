package boxio

import "sort"

type span struct {
	off, n int64
}

// freeList tracks released event ranges, sorted by offset and coalesced.
type freeList struct {
	spans []span
}

// allocate returns the first free range that fits n events.
func (f *freeList) allocate(n int64) (int64, bool) {
	for i, s := range f.spans {
		if s.n < n {
			continue
		}
		off := s.off
		if s.n == n {
			f.spans = append(f.spans[:i], f.spans[i+1:]...)
		} else {
			f.spans[i] = span{off: s.off + n, n: s.n - n}
		}
		return off, true
	}
	return 0, false
}

func (f *freeList) release(off, n int64) {
	if n <= 0 {
		return
	}
	i := sort.Search(len(f.spans), func(i int) bool { return f.spans[i].off >= off })
	f.spans = append(f.spans, span{})
	copy(f.spans[i+1:], f.spans[i:])
	f.spans[i] = span{off: off, n: n}
	// merge with the next, then the previous
	if i+1 < len(f.spans) && f.spans[i].off+f.spans[i].n == f.spans[i+1].off {
		f.spans[i].n += f.spans[i+1].n
		f.spans = append(f.spans[:i+1], f.spans[i+2:]...)
	}
	if i > 0 && f.spans[i-1].off+f.spans[i-1].n == f.spans[i].off {
		f.spans[i-1].n += f.spans[i].n
		f.spans = append(f.spans[:i], f.spans[i+1:]...)
	}
}

// trimEnd drops a free range that ends at end and returns the new end.
func (f *freeList) trimEnd(end int64) int64 {
	if k := len(f.spans); k > 0 && f.spans[k-1].off+f.spans[k-1].n == end {
		end = f.spans[k-1].off
		f.spans = f.spans[:k-1]
	}
	return end
}

func (f *freeList) total() int64 {
	var t int64
	for _, s := range f.spans {
		t += s.n
	}
	return t
}
