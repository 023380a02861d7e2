package engine

import "sync/atomic"

// sequence numbers invocations for log correlation.
//
// Thread-safety: sequence is safe for concurrent use (atomic operations).
type sequence struct {
	n atomic.Int64
}

// Next returns the next number, starting at 1.
func (s *sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last number handed out.
func (s *sequence) Current() int64 {
	return s.n.Load()
}
