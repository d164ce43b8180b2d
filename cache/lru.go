package cache

// lruNode links one key into the recency ring.
type lruNode[K comparable] struct {
	key        K
	prev, next *lruNode[K]
}

// lruList is a circular list around a sentinel: root.next is the most
// recently used key, root.prev the least recently used one. An empty list
// has root pointing at itself.
//
// Not safe for concurrent use; Cache serializes access.
type lruList[K comparable] struct {
	root lruNode[K]
	n    int
}

func newLRUList[K comparable]() *lruList[K] {
	l := &lruList[K]{}
	l.Clear()
	return l
}

func (l *lruList[K]) Len() int { return l.n }

// PushFront links key as most recently used.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	node := &lruNode[K]{key: key}
	l.insertAfter(node, &l.root)
	return node
}

func (l *lruList[K]) MoveToFront(node *lruNode[K]) {
	if node == nil || l.root.next == node {
		return
	}
	l.remove(node)
	l.insertAfter(node, &l.root)
}

func (l *lruList[K]) Remove(node *lruNode[K]) {
	if node == nil || node.next == nil {
		return
	}
	l.remove(node)
}

// RemoveOldest unlinks the least recently used key.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.n == 0 {
		var zero K
		return zero, false
	}
	oldest := l.root.prev
	l.remove(oldest)
	return oldest.key, true
}

// Keys lists keys from most to least recently used.
func (l *lruList[K]) Keys() []K {
	keys := make([]K, 0, l.n)
	for node := l.root.next; node != &l.root; node = node.next {
		keys = append(keys, node.key)
	}
	return keys
}

func (l *lruList[K]) Clear() {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
}

func (l *lruList[K]) insertAfter(node, at *lruNode[K]) {
	node.prev = at
	node.next = at.next
	at.next.prev = node
	at.next = node
	l.n++
}

// remove unlinks node; a removed node has nil links.
func (l *lruList[K]) remove(node *lruNode[K]) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev, node.next = nil, nil
	l.n--
}
