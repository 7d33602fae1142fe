// SPDX-License-Identifier: MIT
package ring

import (
	"sync"
	"sync/atomic"
	"testing"
)

func sequence(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestPushThenPopWindow(t *testing.T) {
	b := New(1024)
	b.Push(sequence(0, 512))

	dst := make([]float32, 256)
	if err := b.PopWindow(dst, 128); err != nil {
		t.Fatalf("PopWindow failed: %v", err)
	}
	for i, v := range dst {
		if v != float32(i) {
			t.Fatalf("dst[%d] = %f, want %d", i, v, i)
		}
	}

	// Second read advances by stride, not by window size.
	if err := b.PopWindow(dst, 128); err != nil {
		t.Fatalf("second PopWindow failed: %v", err)
	}
	if dst[0] != 128 {
		t.Errorf("stride advance wrong: dst[0] = %f, want 128", dst[0])
	}
}

func TestInsufficientData(t *testing.T) {
	b := New(1024)
	b.Push(sequence(0, 100))

	dst := make([]float32, 256)
	if err := b.PopWindow(dst, 128); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}

	// Topping up past the window size makes the read succeed.
	b.Push(sequence(100, 200))
	if err := b.PopWindow(dst, 128); err != nil {
		t.Errorf("PopWindow after top-up failed: %v", err)
	}
}

func TestOverwriteKeepsMostRecent(t *testing.T) {
	// Push 5000 samples into capacity 4096: the first 904 are discarded and
	// the retained tail stays in temporal order.
	b := New(4096)
	b.Push(sequence(0, 5000))

	dst := make([]float32, 4096)
	if err := b.PopWindow(dst, 4096); err != nil {
		t.Fatalf("PopWindow failed: %v", err)
	}
	for i, v := range dst {
		if v != float32(904+i) {
			t.Fatalf("dst[%d] = %f, want %d (oldest retained sample wrong)", i, v, 904+i)
		}
	}
}

func TestSingleBlockLargerThanCapacity(t *testing.T) {
	b := New(256)
	b.Push(sequence(0, 1000))

	dst := make([]float32, 256)
	if err := b.PopWindow(dst, 256); err != nil {
		t.Fatalf("PopWindow failed: %v", err)
	}
	if dst[0] != 744 || dst[255] != 999 {
		t.Errorf("retained window [%f..%f], want [744..999]", dst[0], dst[255])
	}
}

func TestLappedReaderResynchronizes(t *testing.T) {
	b := New(256)
	b.Push(sequence(0, 200))

	dst := make([]float32, 64)
	if err := b.PopWindow(dst, 64); err != nil {
		t.Fatalf("initial PopWindow failed: %v", err)
	}

	// Writer laps the reader completely.
	b.Push(sequence(200, 1000))
	if err := b.PopWindow(dst, 64); err != nil {
		t.Fatalf("PopWindow after lap failed: %v", err)
	}
	// Oldest retained is sample 944 (1200 written - 256 capacity).
	if dst[0] != 944 {
		t.Errorf("resync start = %f, want 944", dst[0])
	}
}

func TestCapacityRoundsUp(t *testing.T) {
	if got := New(5000).Capacity(); got != 8192 {
		t.Errorf("Capacity = %d, want 8192", got)
	}
	if got := New(4096).Capacity(); got != 4096 {
		t.Errorf("Capacity = %d, want 4096", got)
	}
}

func TestBuffered(t *testing.T) {
	b := New(512)
	if b.Buffered() != 0 {
		t.Error("fresh buffer should report 0 buffered")
	}
	b.Push(sequence(0, 100))
	if got := b.Buffered(); got != 100 {
		t.Errorf("Buffered = %d, want 100", got)
	}
	b.Push(sequence(100, 1000))
	if got := b.Buffered(); got != 512 {
		t.Errorf("Buffered after overrun = %d, want capacity 512", got)
	}
}

func TestInFlightPushClaimsOldestRegion(t *testing.T) {
	// Reader sits at the oldest retained sample while a push is mid-copy
	// over that region: claimed via the reservation cursor, data partially
	// overwritten, written not yet advanced. The reader must skip past the
	// claimed slots instead of returning them.
	b := New(256)
	b.Push(sequence(0, 256))

	w := b.written.Load()
	b.reserved.Store(w + 64)
	copy(b.data[:64], sequence(256, 64)) // push body still in flight

	dst := make([]float32, 64)
	if err := b.PopWindow(dst, 64); err != nil {
		t.Fatalf("PopWindow failed: %v", err)
	}
	if dst[0] != 64 {
		t.Errorf("read started at %f, want 64 (first sample past the claimed region)", dst[0])
	}
	for i := 1; i < len(dst); i++ {
		if dst[i] != dst[i-1]+1 {
			t.Fatalf("window not contiguous at %d: %f then %f", i, dst[i-1], dst[i])
		}
	}

	// Push publishes; reading continues in order from the new position.
	b.written.Store(w + 64)
	if err := b.PopWindow(dst, 64); err != nil {
		t.Fatalf("PopWindow after push completed failed: %v", err)
	}
	if dst[0] != 128 {
		t.Errorf("next read started at %f, want 128", dst[0])
	}
}

func TestConcurrentPushPop(t *testing.T) {
	// One writer, one reader, as in production. Windows that survive the
	// seqlock check must always be internally ordered.
	b := New(4096)

	var done atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pos := 0
		for !done.Load() {
			b.Push(sequence(pos, 128))
			pos += 128
		}
	}()

	dst := make([]float32, 1024)
	reads := 0
	for reads < 200 {
		if err := b.PopWindow(dst, 512); err != nil {
			continue
		}
		reads++
		for i := 1; i < len(dst); i++ {
			if dst[i] != dst[i-1]+1 {
				done.Store(true)
				t.Fatalf("window not contiguous at %d: %f then %f", i, dst[i-1], dst[i])
			}
		}
	}
	done.Store(true)
	wg.Wait()
}

func TestPopWindowHotPath(t *testing.T) {
	b := New(8192)
	b.Push(make([]float32, 8192))
	dst := make([]float32, 1024)

	allocs := testing.AllocsPerRun(100, func() {
		b.Push(dst)
		_ = b.PopWindow(dst, 512)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in Push/PopWindow, got %.1f", allocs)
	}
}

func BenchmarkPushPop(b *testing.B) {
	buf := New(8192)
	block := make([]float32, 512)
	dst := make([]float32, 2048)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Push(block)
		_ = buf.PopWindow(dst, 1024)
	}
}
