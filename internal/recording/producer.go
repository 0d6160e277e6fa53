package recording

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/timeutil"
)

// FrameSource yields one estimator result per call. ok is false once the
// source is exhausted.
type FrameSource interface {
	Next() (frame []*landmark.Point3, ok bool)
}

// Producer pulls frames from a source on a fixed cadence and pushes them
// into a Buffer, the way a camera callback would.
type Producer struct {
	buf      *Buffer
	src      FrameSource
	clock    timeutil.Clock
	interval time.Duration

	accepted atomic.Int64
	refused  atomic.Int64
}

// NewProducer creates a producer. A nil clock uses the wall clock.
func NewProducer(buf *Buffer, src FrameSource, clock timeutil.Clock, interval time.Duration) *Producer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Producer{buf: buf, src: src, clock: clock, interval: interval}
}

// Run pushes one frame per tick until ctx is cancelled or the source is
// exhausted. It returns ctx.Err() on cancellation and nil on exhaustion.
func (p *Producer) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			frame, ok := p.src.Next()
			if !ok {
				logf("source exhausted after %d frames", p.accepted.Load()+p.refused.Load())
				return nil
			}
			if p.buf.Push(frame) {
				p.accepted.Add(1)
			} else {
				p.refused.Add(1)
			}
		}
	}
}

// Counts returns how many frames the buffer accepted and refused.
func (p *Producer) Counts() (accepted, refused int64) {
	return p.accepted.Load(), p.refused.Load()
}
