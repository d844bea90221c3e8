package sets

// Ordered is a set that remembers insertion order. The zero value is not
// usable; construct with NewOrdered.
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// NewOrdered creates an ordered set pre-populated with vals.
func NewOrdered[T comparable](vals ...T) *Ordered[T] {
	o := &Ordered[T]{index: make(map[T]int, len(vals))}
	for _, v := range vals {
		o.Add(v)
	}
	return o
}

// Add appends v if absent and reports whether it was inserted.
func (o *Ordered[T]) Add(v T) bool {
	if _, ok := o.index[v]; ok {
		return false
	}
	o.index[v] = len(o.items)
	o.items = append(o.items, v)
	return true
}

// Has reports membership.
func (o *Ordered[T]) Has(v T) bool {
	_, ok := o.index[v]
	return ok
}

// Delete removes v, keeping the relative order of the remaining items.
func (o *Ordered[T]) Delete(v T) bool {
	i, ok := o.index[v]
	if !ok {
		return false
	}
	delete(o.index, v)
	o.items = append(o.items[:i], o.items[i+1:]...)
	for j := i; j < len(o.items); j++ {
		o.index[o.items[j]] = j
	}
	return true
}

// Len returns the number of members.
func (o *Ordered[T]) Len() int { return len(o.items) }

// Items returns a copy of the members in insertion order.
func (o *Ordered[T]) Items() []T {
	out := make([]T, len(o.items))
	copy(out, o.items)
	return out
}

// Clone returns an independent copy.
func (o *Ordered[T]) Clone() *Ordered[T] {
	return NewOrdered(o.items...)
}
