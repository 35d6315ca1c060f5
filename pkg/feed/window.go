package feed

import (
	"math"
	"sync"
)

// VisibleRange computes the inclusive [first, last] index range a windowed
// list should render for the given scroll offset. Layout math uses a fixed
// estimated item height; real item heights may differ, which shifts scroll
// position slightly but never the correctness of the window. Returns
// (0, -1) for an empty list.
func VisibleRange(scrollTop, containerHeight, itemHeight float64, overscan, length int) (first, last int) {
	if length == 0 || itemHeight <= 0 {
		return 0, -1
	}
	first = int(math.Floor(scrollTop/itemHeight)) - overscan
	last = int(math.Ceil((scrollTop+containerHeight)/itemHeight)) + overscan
	if first < 0 {
		first = 0
	}
	if last > length-1 {
		last = length - 1
	}
	return first, last
}

// SpacerHeights returns the pixel heights of the spacers above and below the
// rendered window, keeping the scrollbar sized for the full list.
func SpacerHeights(first, last, length int, itemHeight float64) (top, bottom float64) {
	if last < first {
		return 0, 0
	}
	top = float64(first) * itemHeight
	bottom = float64(length-1-last) * itemHeight
	return top, bottom
}

// StickToBottom reports whether the viewport is within threshold of the
// bottom of the content. Callers check this before appending a new message:
// if true, auto-scroll; otherwise preserve the position and show a
// new-messages affordance instead.
func StickToBottom(scrollTop, containerHeight, contentHeight, threshold float64) bool {
	return contentHeight-(scrollTop+containerHeight) <= threshold
}

// Pager latches backward pagination so that scrolling into the near-top
// threshold fires exactly one load, no matter how many scroll ticks arrive
// while the load is pending or while the viewport stays inside the
// threshold.
type Pager struct {
	threshold float64

	mu      sync.Mutex
	loading bool
	hasMore bool
	armed   bool
}

// NewPager creates a pager that triggers when scrollTop falls within
// threshold pixels of the top.
func NewPager(threshold float64) *Pager {
	return &Pager{threshold: threshold, hasMore: true, armed: true}
}

// ShouldLoad is called on every scroll tick. It returns true exactly once
// per threshold crossing, and only when more history exists and no load is
// already in flight. A true return transitions the pager into loading state;
// the caller must invoke LoadComplete when the page arrives.
func (p *Pager) ShouldLoad(scrollTop float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if scrollTop > p.threshold {
		p.armed = true
		return false
	}
	if !p.armed || p.loading || !p.hasMore {
		return false
	}
	p.armed = false
	p.loading = true
	return true
}

// LoadComplete records the result of a page load. The pager re-arms only
// after the viewport leaves and re-enters the threshold.
func (p *Pager) LoadComplete(hasMore bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	p.hasMore = hasMore
}

// Loading reports whether a page load is in flight.
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// HasMore reports whether older history remains to be loaded.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}
