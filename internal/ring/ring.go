// Package ring provides a fixed-capacity circular buffer that ignores writes
// too close to the previous one and reports the mean of its contents.
package ring

import (
	"fmt"
	"io"
	"strings"
)

// Number is the set of element types a Smoothed buffer can hold.
// Unsigned types are excluded so the absolute difference is always defined.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Smoothed is a fixed-size circular buffer with a quiescence threshold.
// Not safe for concurrent use.
type Smoothed[T Number] struct {
	values      []T
	cursor      int // next write position, always in [0, len(values))
	threshold   T
	initialized bool
	debug       io.Writer
}

// New creates a buffer of the given capacity. A Put whose value differs from
// the newest value by less than threshold is dropped.
// Panics if capacity < 1.
func New[T Number](capacity int, threshold T) *Smoothed[T] {
	return NewDebug(capacity, threshold, nil)
}

// NewDebug is like New but dumps every accepted write and the buffer contents
// to w. A nil w disables the dump.
func NewDebug[T Number](capacity int, threshold T, w io.Writer) *Smoothed[T] {
	if capacity < 1 {
		panic(fmt.Sprintf("ring: capacity must be >= 1, got %d", capacity))
	}
	return &Smoothed[T]{
		values:    make([]T, capacity),
		threshold: threshold,
		debug:     w,
	}
}

// Put writes value at the cursor unless it is within threshold of Newest.
// The first Put seeds every slot with value so averages and relative reads
// start from a sane value instead of zeros.
func (s *Smoothed[T]) Put(value T) {
	if !s.initialized {
		s.Fill(value)
		s.initialized = true
	}

	if abs(value-s.Newest()) < s.threshold {
		return
	}

	s.values[s.cursor] = value
	s.cursor++
	if s.cursor == len(s.values) {
		s.cursor = 0
	}

	if s.debug != nil {
		s.dump(value)
	}
}

func (s *Smoothed[T]) dump(value T) {
	var b strings.Builder
	fmt.Fprintf(&b, "Put: %v Content: ", value)
	for i := range s.values {
		fmt.Fprintf(&b, "%v, ", s.Get(i))
	}
	b.WriteString("\n")
	io.WriteString(s.debug, b.String())
}

// Average returns the arithmetic mean of all slots.
func (s *Smoothed[T]) Average() float64 {
	var total float64
	for _, v := range s.values {
		total += float64(v)
	}
	return total / float64(len(s.values))
}

// Get returns the value at a position relative to the oldest retained value:
// 0 is the oldest, Size()-1 the newest.
// Panics if index is outside [0, Size()).
func (s *Smoothed[T]) Get(index int) T {
	if index < 0 || index >= len(s.values) {
		panic(fmt.Sprintf("ring: index %d out of range [0,%d)", index, len(s.values)))
	}
	idx := index + s.cursor
	if idx >= len(s.values) {
		idx -= len(s.values)
	}
	return s.values[idx]
}

// Oldest returns the oldest retained value.
func (s *Smoothed[T]) Oldest() T {
	return s.values[s.cursor]
}

// Newest returns the most recently accepted value.
func (s *Smoothed[T]) Newest() T {
	last := s.cursor - 1
	if last < 0 {
		last = len(s.values) - 1
	}
	return s.values[last]
}

// Fill overwrites every slot with value. The cursor is unchanged.
func (s *Smoothed[T]) Fill(value T) {
	for i := range s.values {
		s.values[i] = value
	}
}

// Size returns the fixed capacity.
func (s *Smoothed[T]) Size() int {
	return len(s.values)
}

// Values returns a copy of the contents, oldest first.
func (s *Smoothed[T]) Values() []T {
	out := make([]T, len(s.values))
	for i := range out {
		out[i] = s.Get(i)
	}
	return out
}

func abs[T Number](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
