package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"simtrack/pkg/model"
)

type recorder struct {
	mu    sync.Mutex
	pairs []model.Pair[model.PrimarySample]
}

func (r *recorder) analyze(_ context.Context, p model.Pair[model.PrimarySample]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, p)
	return nil
}

func (r *recorder) snapshot() []model.Pair[model.PrimarySample] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Pair[model.PrimarySample](nil), r.pairs...)
}

func TestDiffer_PairsWithPredecessor(t *testing.T) {
	rec := &recorder{}
	d := New("primary", rec.analyze)

	for i := 1; i <= 3; i++ {
		d.Enqueue(model.PrimarySample{Seq: uint64(i)})
	}
	if got := d.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	if n := d.Drain(context.Background()); n != 3 {
		t.Fatalf("Drain() = %d, want 3", n)
	}

	pairs := rec.snapshot()
	want := [][2]uint64{{1, 1}, {1, 2}, {2, 3}}
	for i, w := range want {
		if pairs[i].Old.Seq != w[0] || pairs[i].New.Seq != w[1] {
			t.Errorf("pair %d = (%d,%d), want (%d,%d)", i, pairs[i].Old.Seq, pairs[i].New.Seq, w[0], w[1])
		}
	}
	if d.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", d.Len())
	}
}

func TestDiffer_Reset(t *testing.T) {
	rec := &recorder{}
	d := New("primary", rec.analyze)

	d.Enqueue(model.PrimarySample{Seq: 1})
	d.Reset()
	d.Enqueue(model.PrimarySample{Seq: 2})
	d.Drain(context.Background())

	pairs := rec.snapshot()
	if pairs[1].Old.Seq != 2 {
		t.Errorf("after Reset, Old.Seq = %d, want 2", pairs[1].Old.Seq)
	}
	if cur, ok := d.Current(); !ok || cur.Seq != 2 {
		t.Errorf("Current() = %v,%v, want seq 2", cur.Seq, ok)
	}
}

func TestDiffer_FailuresDoNotStopDraining(t *testing.T) {
	tests := []struct {
		name string
		fail func(seq uint64) error
	}{
		{
			name: "error",
			fail: func(seq uint64) error {
				if seq == 2 {
					return errors.New("boom")
				}
				return nil
			},
		},
		{
			name: "panic",
			fail: func(seq uint64) error {
				if seq == 2 {
					panic("boom")
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []uint64
			d := New("secondary", func(_ context.Context, p model.Pair[model.PrimarySample]) error {
				seen = append(seen, p.New.Seq)
				return tt.fail(p.New.Seq)
			})
			for i := 1; i <= 4; i++ {
				d.Enqueue(model.PrimarySample{Seq: uint64(i)})
			}
			if n := d.Drain(context.Background()); n != 4 {
				t.Errorf("Drain() = %d, want 4", n)
			}
			if len(seen) != 4 || seen[3] != 4 {
				t.Errorf("seen = %v, want [1 2 3 4]", seen)
			}
		})
	}
}

func TestDiffer_DrainStopsBetweenPairsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var processed int
	d := New("primary", func(actx context.Context, _ model.Pair[model.PrimarySample]) error {
		processed++
		cancel()
		// The pair in flight keeps a live context.
		if actx.Err() != nil {
			t.Error("analyzer context cancelled mid-pair")
		}
		return nil
	})
	d.Enqueue(model.PrimarySample{Seq: 1})
	d.Enqueue(model.PrimarySample{Seq: 2})

	d.Drain(ctx)
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDiffer_RunConsumesInOrder(t *testing.T) {
	rec := &recorder{}
	d := New("landing", rec.analyze)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 50; i++ {
		d.Enqueue(model.PrimarySample{Seq: uint64(i)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.snapshot()) < 50 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	pairs := rec.snapshot()
	if len(pairs) != 50 {
		t.Fatalf("processed %d pairs, want 50", len(pairs))
	}
	for i, p := range pairs {
		if p.New.Seq != uint64(i+1) {
			t.Fatalf("pair %d has seq %d, out of order", i, p.New.Seq)
		}
	}
}
