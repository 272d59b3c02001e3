// seehuhn.de/go/pdfsplit - split PDF files into single-page documents
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import "container/list"

// lruCache is a fixed-capacity cache which evicts the least recently used
// entry first.
type lruCache[K comparable, V any] struct {
	capacity int
	entries  map[K]*list.Element
	order    *list.List // front is most recently used
}

type cacheEntry[K comparable, V any] struct {
	key K
	val V
}

func newCache[K comparable, V any](capacity int) *lruCache[K, V] {
	return &lruCache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Put adds an entry to the cache, replacing any previous value for key.
func (c *lruCache[K, V]) Put(key K, val V) {
	if c.capacity <= 0 {
		return
	}

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry[K, V]).val = val
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry[K, V]{key: key, val: val})
	if c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cacheEntry[K, V]).key)
	}
}

// Get returns the value stored for key and marks it as recently used.
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry[K, V]).val, true
}

// Has reports whether key is in the cache, without changing the order.
func (c *lruCache[K, V]) Has(key K) bool {
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (c *lruCache[K, V]) Len() int {
	return c.order.Len()
}
