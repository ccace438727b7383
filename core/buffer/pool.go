// File: core/buffer/pool.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

// Package buffer pools byte slices in power-of-two size classes. Handlers
// run on the loop goroutine and allocate a scratch buffer per readiness
// callback; recycling those keeps steady-state dispatch allocation-free.
package buffer

import "sync"

// Size classes in bytes. Requests above the largest class are allocated
// directly and dropped on Put.
var sizeClasses = [...]int{
	512,
	2 * 1024,
	4 * 1024,
	16 * 1024,
	64 * 1024,
}

func classIndex(size int) int {
	for i, c := range sizeClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

// Pool hands out byte slices by size class.
type Pool struct {
	classes [len(sizeClasses)]sync.Pool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.classes {
		c := sizeClasses[i]
		p.classes[i].New = func() any {
			b := make([]byte, c)
			return &b
		}
	}
	return p
}

// Get returns a slice with length >= size, possibly recycled. The slice
// is not zeroed.
func (p *Pool) Get(size int) []byte {
	i := classIndex(size)
	if i < 0 {
		return make([]byte, size)
	}
	return *p.classes[i].Get().(*[]byte)
}

// Put recycles a slice obtained from Get. Slices that do not match a size
// class exactly are discarded.
func (p *Pool) Put(b []byte) {
	for i, c := range sizeClasses {
		if cap(b) == c {
			b = b[:c]
			p.classes[i].Put(&b)
			return
		}
	}
}
