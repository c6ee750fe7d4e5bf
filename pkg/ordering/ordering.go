// Package ordering computes index assignments for ordered collections of
// pages and placements. It does no I/O and never fails: callers persist
// whatever entries a function reports as changed.
package ordering

import (
	"cmp"
	"slices"
)

// Entry is anything carrying an ordering index
type Entry interface {
	GetIndex() int
	SetIndex(int)
}

// Max returns the highest index in entries, or 0 when empty
func Max[E Entry](entries []E) int {
	m := 0
	for _, e := range entries {
		if e.GetIndex() > m {
			m = e.GetIndex()
		}
	}
	return m
}

// Next returns the index an appended entry should take
func Next[E Entry](entries []E) int {
	return Max(entries) + 1
}

// InsertAt makes room for a new entry at pos. Entries whose index is at or
// after pos move up by one and are returned as shifted. A nil pos appends.
func InsertAt[E Entry](entries []E, pos *int) (index int, shifted []E) {
	if pos == nil {
		return Next(entries), nil
	}
	for _, e := range entries {
		if e.GetIndex() >= *pos {
			e.SetIndex(e.GetIndex() + 1)
			shifted = append(shifted, e)
		}
	}
	return *pos, shifted
}

// HasTies reports whether two entries share an index
func HasTies[E Entry](entries []E) bool {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if seen[e.GetIndex()] {
			return true
		}
		seen[e.GetIndex()] = true
	}
	return false
}

// Remove drops the entry at position i. The remaining entries keep their
// indexes; gaps are legal.
func Remove[E Entry](entries []E, i int) []E {
	if i < 0 || i >= len(entries) {
		return entries
	}
	out := make([]E, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}

// Swap exchanges the indexes of the entries at positions a and b of list,
// which must be in display order. When both carry the same index the whole
// list is resequenced instead, so a tie left by old data cannot survive.
// The entries whose index changed are returned.
func Swap[E Entry](list []E, a, b int) []E {
	if a == b {
		return nil
	}
	ea, eb := list[a], list[b]
	if ea.GetIndex() != eb.GetIndex() {
		ia, ib := ea.GetIndex(), eb.GetIndex()
		ea.SetIndex(ib)
		eb.SetIndex(ia)
		return []E{ea, eb}
	}
	return Resequence(list)
}

// Resequence walks list in display order and assigns 1..n, returning the
// entries whose index changed.
func Resequence[E Entry](list []E) []E {
	var changed []E
	for i, e := range list {
		if e.GetIndex() != i+1 {
			e.SetIndex(i + 1)
			changed = append(changed, e)
		}
	}
	return changed
}

// Renumber assigns 1..n in list order, discarding whatever indexes the
// caller supplied. Used when a full ordered list replaces the stored one.
func Renumber[E Entry](entries []E) {
	for i, e := range entries {
		e.SetIndex(i + 1)
	}
}

// Sort orders entries by index, falling back to tie for equal indexes
func Sort[E Entry](entries []E, tie func(a, b E) int) {
	slices.SortStableFunc(entries, func(a, b E) int {
		if c := cmp.Compare(a.GetIndex(), b.GetIndex()); c != 0 {
			return c
		}
		if tie == nil {
			return 0
		}
		return tie(a, b)
	})
}

// Neighbor returns the position step places away from i in a list of n
// entries, or -1 when that falls off either end.
func Neighbor(n, i, step int) int {
	j := i + step
	if step == 0 || j < 0 || j >= n {
		return -1
	}
	return j
}
