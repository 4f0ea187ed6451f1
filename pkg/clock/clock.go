// Package clock is the ticking source the simulators subscribe to.
//
// Real drives callbacks from goroutines; Manual fires them synchronously
// from Advance so timer-driven behavior can be tested deterministically.
package clock

import (
	"context"
	"sync"
	"time"
)

// Timer is a scheduled callback. After Stop returns the callback will not
// run again. Stop must not be called from inside the callback of the same
// Real timer.
type Timer interface {
	Stop()
}

type Clock interface {
	Now() time.Time
	Every(d time.Duration, fn func()) Timer
	After(d time.Duration, fn func()) Timer
}

type Real struct{}

func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Every(d time.Duration, fn func()) Timer {
	l := newLoop()
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				// stop may have raced with the tick
				select {
				case <-l.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return l
}

func (Real) After(d time.Duration, fn func()) Timer {
	l := newLoop()
	go func() {
		defer close(l.done)
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-l.stop:
		case <-timer.C:
			select {
			case <-l.stop:
			default:
				fn()
			}
		}
	}()
	return l
}

type loop struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newLoop() *loop {
	return &loop{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (l *loop) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// Sleep blocks for d on c, returning early with ctx's error if ctx is done
// first. A non-positive d returns immediately.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	ready := make(chan struct{})
	timer := c.After(d, func() { close(ready) })

	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-ready:
		return nil
	}
}
