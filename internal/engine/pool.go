package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAcquireTimeout reports that no worker slot became free before the
// caller's deadline.
var ErrAcquireTimeout = errors.New("recognition pool acquire timeout")

// Slot is one unit of pool capacity. Its engine handle is nil until built
// and nil again after teardown; a nil handle is rebuilt on the next acquire.
type Slot struct {
	engine Engine
}

// Engine returns the slot's current handle.
func (s *Slot) Engine() Engine { return s.engine }

// Pool grants exclusive access to a fixed number of engine handles. Slots
// travel through a buffered channel, so Acquire blocks without polling and
// at most Size slots are ever out at once.
//
// Two construction-time policies exist: with reuse, handles are created up
// front and kept alive across acquisitions (steady-state memory for speed);
// without, a handle is created inside Acquire and torn down in Release
// (bounds peak memory at the cost of per-call startup).
type Pool struct {
	size    int
	reuse   bool
	factory Factory
	slots   chan *Slot
	logger  *slog.Logger
}

// NewPool builds a pool of the given size. In reuse mode all handles are
// created eagerly so a broken engine installation fails at startup instead
// of on the first request.
func NewPool(size int, reuse bool, factory Factory, logger *slog.Logger) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be >= 1, got %d", size)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		size:    size,
		reuse:   reuse,
		factory: factory,
		slots:   make(chan *Slot, size),
		logger:  logger,
	}
	for i := 0; i < size; i++ {
		slot := &Slot{}
		if reuse {
			e, err := factory()
			if err != nil {
				p.Close()
				return nil, fmt.Errorf("create recognition engine %d/%d: %w", i+1, size, err)
			}
			slot.engine = e
		}
		p.slots <- slot
	}
	logger.Info("recognition pool ready", "size", size, "reuse", reuse)
	return p, nil
}

// Size returns the fixed slot count.
func (p *Pool) Size() int { return p.size }

// Acquire blocks until a slot is free or ctx is done. The returned slot
// always carries a live engine handle. Release must be called exactly once
// per successful Acquire, on every exit path.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case slot := <-p.slots:
		if slot.engine == nil {
			e, err := p.factory()
			if err != nil {
				p.slots <- slot
				return nil, fmt.Errorf("create recognition engine: %w", err)
			}
			slot.engine = e
		}
		return slot, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
	}
}

// Release returns a slot to the pool. In per-use mode the handle is torn
// down first so the engine's memory is freed between acquisitions.
func (p *Pool) Release(slot *Slot) {
	if slot == nil {
		return
	}
	if !p.reuse && slot.engine != nil {
		if err := slot.engine.Close(); err != nil {
			p.logger.Warn("engine teardown failed", "error", err)
		}
		slot.engine = nil
	}
	p.slots <- slot
}

// Recognize runs one recognition call on the slot's handle, bounded by
// timeout when timeout > 0. The underlying engine call blocks and cannot be
// interrupted, so on timeout the handle is handed off to the in-flight
// goroutine for teardown and the slot is left empty; the next Acquire
// rebuilds it. The pool therefore never shrinks below its fixed size.
func (p *Pool) Recognize(ctx context.Context, slot *Slot, img Image, timeout time.Duration) (string, error) {
	if slot == nil || slot.engine == nil {
		return "", errors.New("recognize: slot has no engine")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	// Buffered so the worker's send always succeeds, even when the caller
	// has already given up. A fast result must never be mistaken for an
	// abandoned one.
	ch := make(chan outcome, 1)
	go func(e Engine) {
		text, err := e.Recognize(ctx, img)
		ch <- outcome{text, err}
	}(slot.engine)

	select {
	case out := <-ch:
		return out.text, out.err
	case <-ctx.Done():
		p.logger.Warn("recognition timeout, discarding engine handle", "engine", slot.engine.Name())
		// The handle may still be mid-call and can never be reused. A
		// drainer waits for the in-flight call to finish and tears the
		// handle down; the slot goes back empty and is rebuilt on the
		// next acquire.
		abandoned := slot.engine
		slot.engine = nil
		go func() {
			<-ch
			if cerr := abandoned.Close(); cerr != nil {
				p.logger.Warn("abandoned engine teardown failed", "error", cerr)
			}
		}()
		return "", fmt.Errorf("recognition timeout: %w", ctx.Err())
	}
}

// Close tears down every idle handle. It must be called only after all
// in-flight work has released its slots.
func (p *Pool) Close() {
	for {
		select {
		case slot := <-p.slots:
			if slot.engine != nil {
				if err := slot.engine.Close(); err != nil {
					p.logger.Warn("engine teardown failed", "error", err)
				}
				slot.engine = nil
			}
		default:
			return
		}
	}
}
