// Package handler provides a single-consumer serial executor. Tasks posted
// to a Handler run one at a time, in FIFO order per producer, on the
// Handler's own goroutine.
package handler

import (
	"sync"

	"github.com/bluekit/bthost"
)

const taskQueueSize = 128

type Handler struct {
	name string

	tasks chan func()
	done  chan struct{}

	closeOnce sync.Once
	drained   chan struct{}
}

func New(name string) *Handler {
	h := &Handler{
		name:    name,
		tasks:   make(chan func(), taskQueueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Handler) Name() string {
	return h.name
}

// Post enqueues fn for execution. After Close the task is dropped with a
// warning.
func (h *Handler) Post(fn func()) {
	select {
	case <-h.done:
		bthost.ComponentLogger("handler").Warnf("handler %s closed, dropping task", h.name)
		return
	default:
	}
	select {
	case <-h.done:
		bthost.ComponentLogger("handler").Warnf("handler %s closed, dropping task", h.name)
	case h.tasks <- fn:
	}
}

// CallOn posts fn and blocks until it has run. Never call it from the
// Handler's own goroutine.
func (h *Handler) CallOn(fn func()) {
	ran := make(chan struct{})
	h.Post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
	case <-h.drained:
	}
}

// Close stops the Handler after draining tasks already queued. Idempotent.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	<-h.drained
}

func (h *Handler) run() {
	defer close(h.drained)
	for {
		select {
		case fn := <-h.tasks:
			fn()
		case <-h.done:
			// drain what was queued before the close
			for {
				select {
				case fn := <-h.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}
