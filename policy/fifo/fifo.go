// Package fifo implements insertion ordering: the list front is the newest
// key and nothing but admission changes the order.
package fifo

import "github.com/IvanBrykalov/cachekit/policy"

type fifo[K comparable] struct {
	h policy.Hooks[K]
}

type fifoPolicy[K comparable] struct{}

// New returns a Policy factory for insertion-ordered stores.
func New[K comparable]() policy.Policy[K] { return fifoPolicy[K]{} }

func (fifoPolicy[K]) New(h policy.Hooks[K]) policy.Ordering[K] {
	return &fifo[K]{h: h}
}

func (fifoPolicy[K]) Name() string { return "insertion" }

func (p *fifo[K]) OnAdd(n policy.Node[K]) { p.h.PushFront(n) }

// OnGet keeps the insertion position.
func (p *fifo[K]) OnGet(policy.Node[K]) {}

// OnUpdate keeps the insertion position: overwriting a key does not make it
// newer.
func (p *fifo[K]) OnUpdate(policy.Node[K]) {}

func (p *fifo[K]) OnRemove(policy.Node[K]) {}
