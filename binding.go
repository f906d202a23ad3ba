package gorgon

import (
	"fmt"
	"slices"
)

// BindingList is the shadow state of one category of binding slots (constant
// buffers, samplers or resource views) of one shader stage.
//
// An item occupies at most one slot of a list. With validation enabled, Set
// rejects an item already bound elsewhere with ErrAlreadyBound; SetRange
// skips such items and leaves their target slot unchanged. Writes that do
// not change a slot issue no native call.
//
// A list sized to zero (feature levels without the stage or category) turns
// every operation into a no-op.
type BindingList[T comparable] struct {
	stage    ShaderStage
	category string
	slots    []T
	validate bool

	// apply pushes slots [start, start+len(items)) to the device. A zero
	// item unbinds its slot.
	apply func(start int, items []T)

	// accept rejects items that cannot live in this list.
	accept func(item T) error
}

func newBindingList[T comparable](stage ShaderStage, category string, size int, validate bool,
	apply func(int, []T), accept func(T) error) *BindingList[T] {
	return &BindingList[T]{
		stage:    stage,
		category: category,
		slots:    make([]T, size),
		validate: validate,
		apply:    apply,
		accept:   accept,
	}
}

// Stage returns the shader stage the list belongs to.
func (l *BindingList[T]) Stage() ShaderStage { return l.stage }

// Len returns the number of slots.
func (l *BindingList[T]) Len() int { return len(l.slots) }

// Get returns the item in slot, or the zero value for an empty or
// out-of-range slot.
func (l *BindingList[T]) Get(slot int) T {
	if slot < 0 || slot >= len(l.slots) {
		var zero T
		return zero
	}
	return l.slots[slot]
}

// Slots returns a copy of all slots.
func (l *BindingList[T]) Slots() []T {
	return slices.Clone(l.slots)
}

// IndexOf returns the slot holding item, or -1.
func (l *BindingList[T]) IndexOf(item T) int {
	var zero T
	if item == zero {
		return -1
	}
	return slices.Index(l.slots, item)
}

// BoundCount returns the number of occupied slots.
func (l *BindingList[T]) BoundCount() int {
	var zero T
	n := 0
	for _, s := range l.slots {
		if s != zero {
			n++
		}
	}
	return n
}

func (l *BindingList[T]) checkSlot(slot int) error {
	if slot < 0 || slot >= len(l.slots) {
		return fmt.Errorf("%w: %s %s slot %d of %d", ErrOutOfRange, l.stage, l.category, slot, len(l.slots))
	}
	return nil
}

func (l *BindingList[T]) checkItem(item T) error {
	var zero T
	if item == zero || l.accept == nil {
		return nil
	}
	return l.accept(item)
}

// Set binds item to slot. The zero item unbinds the slot.
func (l *BindingList[T]) Set(slot int, item T) error {
	if len(l.slots) == 0 {
		return nil
	}
	if err := l.checkSlot(slot); err != nil {
		return err
	}
	if err := l.checkItem(item); err != nil {
		return err
	}
	if l.slots[slot] == item {
		return nil
	}
	if idx := l.IndexOf(item); idx >= 0 && l.validate {
		return fmt.Errorf("%w: %s %s slot %d already holds the item, cannot bind slot %d",
			ErrAlreadyBound, l.stage, l.category, idx, slot)
	}
	l.slots[slot] = item
	l.apply(slot, []T{item})
	return nil
}

// SetRange binds items to consecutive slots starting at start, issuing one
// native call for the run. An empty items clears [start, Len).
//
// An item already bound at a slot other than its target is skipped and its
// target slot keeps its prior value. Conflicts are evaluated against the
// list as it is updated, so a duplicate within items binds only once.
func (l *BindingList[T]) SetRange(start int, items []T) error {
	if len(l.slots) == 0 {
		return nil
	}
	if len(items) == 0 {
		if start < 0 || start > len(l.slots) {
			return fmt.Errorf("%w: %s %s start %d of %d", ErrOutOfRange, l.stage, l.category, start, len(l.slots))
		}
		return l.ClearRange(start, len(l.slots)-start)
	}
	if start < 0 || len(items) > len(l.slots)-start {
		return fmt.Errorf("%w: %s %s range [%d, %d) of %d", ErrOutOfRange, l.stage, l.category,
			start, start+len(items), len(l.slots))
	}
	for _, item := range items {
		if err := l.checkItem(item); err != nil {
			return err
		}
	}

	changed := false
	for i, item := range items {
		slot := start + i
		if idx := l.IndexOf(item); idx >= 0 && idx != slot {
			Logger().Debug("gorgon: bind skipped, item bound elsewhere",
				"stage", l.stage, "list", l.category, "slot", slot, "boundAt", idx)
			continue
		}
		if l.slots[slot] != item {
			l.slots[slot] = item
			changed = true
		}
	}
	if changed {
		l.apply(start, slices.Clone(l.slots[start:start+len(items)]))
	}
	return nil
}

// ClearRange unbinds count slots starting at start.
func (l *BindingList[T]) ClearRange(start, count int) error {
	if len(l.slots) == 0 || count == 0 {
		return nil
	}
	if start < 0 || count < 0 || count > len(l.slots)-start {
		return fmt.Errorf("%w: %s %s clear [%d, +%d) of %d", ErrOutOfRange, l.stage, l.category, start, count, len(l.slots))
	}
	var zero T
	changed := false
	for i := start; i < start+count; i++ {
		if l.slots[i] != zero {
			l.slots[i] = zero
			changed = true
		}
	}
	if changed {
		l.apply(start, make([]T, count))
	}
	return nil
}

// Clear unbinds every slot.
func (l *BindingList[T]) Clear() {
	_ = l.ClearRange(0, len(l.slots))
}

// Unbind clears every slot holding item, issuing a native unbind per slot,
// and returns the number of slots cleared.
func (l *BindingList[T]) Unbind(item T) int {
	var zero T
	if item == zero {
		return 0
	}
	n := 0
	for i, s := range l.slots {
		if s == item {
			l.slots[i] = zero
			l.apply(i, []T{zero})
			n++
		}
	}
	return n
}

// ReSeat unbinds and rebinds item on the device in every slot that holds it,
// leaving the shadow state unchanged. Use it after the native object behind
// item has been replaced. It reports whether item was bound.
func (l *BindingList[T]) ReSeat(item T) bool {
	var zero T
	if item == zero {
		return false
	}
	found := false
	for i, s := range l.slots {
		if s == item {
			l.apply(i, []T{zero})
			l.apply(i, []T{item})
			found = true
		}
	}
	return found
}

// assign replaces the leading slots with items and clears the rest, as a
// single native call over the changed window. Unlike SetRange it never
// skips: the result is exactly items. A duplicate within items fails with
// ErrAlreadyBound when validating.
func (l *BindingList[T]) assign(items []T) error {
	if err := l.checkAssign(items); err != nil {
		return err
	}
	if len(l.slots) == 0 {
		return nil
	}
	var zero T
	lo, hi := -1, -1
	for i := range l.slots {
		want := zero
		if i < len(items) {
			want = items[i]
		}
		if l.slots[i] != want {
			l.slots[i] = want
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	if lo >= 0 {
		l.apply(lo, slices.Clone(l.slots[lo:hi]))
	}
	return nil
}

// checkAssign reports whether assign would accept items, without touching
// the slots or the device.
func (l *BindingList[T]) checkAssign(items []T) error {
	if len(l.slots) == 0 {
		return nil
	}
	if len(items) > len(l.slots) {
		return fmt.Errorf("%w: %d %s %s bindings for %d slots", ErrOutOfRange, len(items), l.stage, l.category, len(l.slots))
	}
	var zero T
	for i, item := range items {
		if item == zero {
			continue
		}
		if err := l.checkItem(item); err != nil {
			return err
		}
		if l.validate && slices.Index(items[:i], item) >= 0 {
			return fmt.Errorf("%w: %s %s item repeated at slot %d", ErrAlreadyBound, l.stage, l.category, i)
		}
	}
	return nil
}
