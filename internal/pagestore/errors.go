package pagestore

import (
	"fmt"
)

var (
	// ErrInvalidData marks caller-contract violations such as oversized
	// page payloads. Never retried, always a bug at the call site.
	ErrInvalidData = fmt.Errorf("invalid data")
	// ErrArithmeticOverflow is returned when a page id cannot be mapped
	// to a file offset without overflowing. The id space is exhausted or
	// the id is corrupted, either way fatal for that id.
	ErrArithmeticOverflow = fmt.Errorf("arithmetic overflow")
)
