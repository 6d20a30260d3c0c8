package registry

import (
	"errors"
	"fmt"

	"github.com/refaktor/injgen/keys"
)

var (
	ErrConflictingBinding         = errors.New("conflicting binding")
	ErrMultipleInjectConstructors = errors.New("multiple inject constructors")
	ErrInvalidMembersInjectionKey = errors.New("invalid members injection key")
	ErrUnresolvedBinding          = errors.New("instantiation queued for generation")
	ErrCyclicParentChain          = errors.New("cyclic parent chain")

	ErrNoActivePass = errors.New("no active pass")
	ErrPassActive   = errors.New("pass already active")
)

// ConsistencyError reports a broken registry invariant. It always points to
// a validation gap upstream and ends the current round.
type ConsistencyError struct {
	Key    keys.Key
	Err    error
	Detail string
}

func (e *ConsistencyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%v: %v: %v", e.Key, e.Err, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
