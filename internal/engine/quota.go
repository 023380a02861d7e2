package engine

import "fmt"

// quota bounds the number of instructions one Execute call may dispatch.
// A non-positive limit disables the check.
type quota struct {
	limit   int
	current int
}

func newQuota(limit int) *quota {
	return &quota{limit: limit}
}

// Check counts one instruction and fails once the limit is passed.
func (q *quota) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &RuntimeError{
			Code:    ErrCodeQuotaExceeded,
			Message: fmt.Sprintf("program exceeded max instructions (%d > %d)", q.current, q.limit),
		}
	}
	return nil
}
