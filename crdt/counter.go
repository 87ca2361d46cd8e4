package crdt

import (
	"fmt"
	"strconv"
)

// CounterKind discriminates the two numeric widths a Counter can hold.
type CounterKind int

const (
	CounterInt32 CounterKind = iota
	CounterInt64
)

// Counter is a numeric value with a monotonic Increase that carries a
// typed delta and wraps on overflow using two's-complement arithmetic,
// matching the width of the counter's own value (spec.md §3.3, §8 S6).
//
// Grounded on cshekharsharma-go-crdt's GCounter/PNCounter for the general
// shape of "a numeric CRDT value with an Increase vocabulary",
// generalized from a sum-of-per-actor-slots G-Counter to a single
// ticket-stamped accumulator: counters here commute by addition because
// every replica applies every Increase operation exactly once (via the
// op log), so no per-actor slot map or LWW tiebreak is needed — only the
// wraparound arithmetic GCounter/PNCounter do not provide.
type Counter struct {
	elementHeader
	kind CounterKind
	i32V int32
	i64V int64
}

// NewCounterInt32 creates an i32 counter with the given initial value.
func NewCounterInt32(v int32, createdAt Ticket) *Counter {
	return &Counter{elementHeader: newElementHeader(createdAt), kind: CounterInt32, i32V: v}
}

// NewCounterInt64 creates an i64 counter with the given initial value.
func NewCounterInt64(v int64, createdAt Ticket) *Counter {
	return &Counter{elementHeader: newElementHeader(createdAt), kind: CounterInt64, i64V: v}
}

// Kind returns the counter's numeric width.
func (c *Counter) Kind() CounterKind { return c.kind }

// Value returns the counter's current value as int32 or int64.
func (c *Counter) Value() interface{} {
	if c.kind == CounterInt32 {
		return c.i32V
	}
	return c.i64V
}

// Increase applies delta to the counter, wrapping on overflow via
// two's-complement arithmetic (no error is raised on wraparound, per
// spec.md §8 S6). delta must be an int32 for an i32 counter, or an int32
// or int64 for an i64 counter; any other numeric type is ErrTypeError,
// and a non-numeric delta is ErrInvalidArgument.
func (c *Counter) Increase(delta interface{}) error {
	switch delta.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
	default:
		return fmt.Errorf("crdt: increase counter with non-numeric %T: %w", delta, ErrInvalidArgument)
	}
	switch c.kind {
	case CounterInt32:
		d, ok := delta.(int32)
		if !ok {
			return fmt.Errorf("crdt: increase i32 counter with %T: %w", delta, ErrTypeError)
		}
		c.i32V = int32(uint32(c.i32V) + uint32(d))
	case CounterInt64:
		switch d := delta.(type) {
		case int32:
			c.i64V = int64(uint64(c.i64V) + uint64(int64(d)))
		case int64:
			c.i64V = int64(uint64(c.i64V) + uint64(d))
		default:
			return fmt.Errorf("crdt: increase i64 counter with %T: %w", delta, ErrTypeError)
		}
	default:
		panic(fmt.Sprintf("crdt: unknown counter kind %d", c.kind))
	}
	return nil
}

func (c *Counter) Remove(executedAt Ticket) bool {
	return c.elementHeader.Remove(executedAt)
}

func (c *Counter) DeepCopy() Element {
	cp := *c
	return &cp
}

func (c *Counter) MarshalJSONValue(sorted bool) string {
	if c.kind == CounterInt32 {
		return strconv.FormatInt(int64(c.i32V), 10)
	}
	return strconv.FormatInt(c.i64V, 10)
}
