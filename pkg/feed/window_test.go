package feed

import (
	"math"
	"testing"
)

func TestVisibleRange_Bounds(t *testing.T) {
	const (
		length          = 500
		itemHeight      = 48.0
		containerHeight = 600.0
		overscan        = 5
	)

	// Sweep the full scrollable range and check the clamp formula holds.
	maxScroll := itemHeight*length - containerHeight
	for scrollTop := 0.0; scrollTop <= maxScroll; scrollTop += 37.0 {
		first, last := VisibleRange(scrollTop, containerHeight, itemHeight, overscan, length)

		wantFirst := int(math.Floor(scrollTop/itemHeight)) - overscan
		if wantFirst < 0 {
			wantFirst = 0
		}
		wantLast := int(math.Ceil((scrollTop+containerHeight)/itemHeight)) + overscan
		if wantLast > length-1 {
			wantLast = length - 1
		}

		if first != wantFirst || last != wantLast {
			t.Fatalf("scrollTop=%v: got [%d,%d], want [%d,%d]", scrollTop, first, last, wantFirst, wantLast)
		}
		if first < 0 || last > length-1 || first > last {
			t.Fatalf("scrollTop=%v: range [%d,%d] out of bounds", scrollTop, first, last)
		}
	}
}

func TestVisibleRange_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		scrollTop float64
		container float64
		item      float64
		overscan  int
		length    int
		wantFirst int
		wantLast  int
	}{
		{name: "empty list", length: 0, item: 48, container: 600, wantFirst: 0, wantLast: -1},
		{name: "zero item height", length: 10, item: 0, container: 600, wantFirst: 0, wantLast: -1},
		{name: "list shorter than viewport", length: 3, item: 48, container: 600, overscan: 5, wantFirst: 0, wantLast: 2},
		{name: "top of list", length: 100, item: 48, container: 600, overscan: 3, wantFirst: 0, wantLast: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := VisibleRange(tt.scrollTop, tt.container, tt.item, tt.overscan, tt.length)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("got [%d,%d], want [%d,%d]", first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestSpacerHeights(t *testing.T) {
	top, bottom := SpacerHeights(10, 19, 100, 48)
	if top != 480 {
		t.Errorf("top = %v, want 480", top)
	}
	if bottom != 80*48 {
		t.Errorf("bottom = %v, want %v", bottom, 80*48)
	}

	top, bottom = SpacerHeights(0, -1, 0, 48)
	if top != 0 || bottom != 0 {
		t.Errorf("empty window spacers = %v,%v, want 0,0", top, bottom)
	}
}

func TestPager_SingleFirePerCrossing(t *testing.T) {
	p := NewPager(100)

	// Scroll ticks approaching and entering the threshold.
	if p.ShouldLoad(500) {
		t.Fatal("fired outside threshold")
	}
	if !p.ShouldLoad(80) {
		t.Fatal("did not fire on threshold entry")
	}

	// Repeated ticks inside the threshold while loading: zero fires.
	for _, pos := range []float64{60, 40, 20, 0} {
		if p.ShouldLoad(pos) {
			t.Fatalf("re-fired at %v while load pending", pos)
		}
	}

	// Still inside the threshold after the load lands: stays latched.
	p.LoadComplete(true)
	if p.ShouldLoad(50) {
		t.Fatal("re-fired without leaving the threshold")
	}

	// Leaving and re-entering re-arms the trigger.
	if p.ShouldLoad(400) {
		t.Fatal("fired outside threshold")
	}
	if !p.ShouldLoad(90) {
		t.Fatal("did not fire on second crossing")
	}
}

func TestPager_NoFireWhenExhausted(t *testing.T) {
	p := NewPager(100)

	if !p.ShouldLoad(10) {
		t.Fatal("first crossing should fire")
	}
	p.LoadComplete(false) // history exhausted

	p.ShouldLoad(500) // re-arm
	if p.ShouldLoad(10) {
		t.Error("fired with hasMore=false")
	}
	if p.HasMore() {
		t.Error("HasMore() = true after exhaustion")
	}
}

func TestStickToBottom(t *testing.T) {
	tests := []struct {
		name      string
		scrollTop float64
		want      bool
	}{
		{name: "at bottom", scrollTop: 400, want: true},
		{name: "within threshold", scrollTop: 360, want: true},
		{name: "scrolled up", scrollTop: 100, want: false},
	}

	// content 1000px, container 600px, threshold 50px
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StickToBottom(tt.scrollTop, 600, 1000, 50); got != tt.want {
				t.Errorf("StickToBottom(%v) = %v, want %v", tt.scrollTop, got, tt.want)
			}
		})
	}
}
