package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// monoSource serializes access to a monotonic entropy source so concurrent
// NewID calls never collide even when generated within the same millisecond.
var monoSource = struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}{entropy: ulid.Monotonic(rand.Reader, 0)}

// ID is a type-tagged wrapper around a 26-character, lexicographically
// sortable ULID. The phantom type T keeps an account ID and a payment ID
// from being accepted interchangeably at compile time.
type ID[T any] struct{ ulid ulid.ULID }

func NewID[T any]() (ID[T], error) {
	monoSource.Lock()
	u, err := ulid.New(ulid.Timestamp(time.Now()), monoSource.entropy)
	monoSource.Unlock()
	if err != nil {
		return ID[T]{}, err
	}
	return ID[T]{ulid: u}, nil
}

func ParseID[T any](s string) (ID[T], error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return ID[T]{}, err
	}
	return ID[T]{ulid: u}, nil
}

func (id ID[T]) IsZero() bool   { return id.ulid == (ulid.ULID{}) }
func (id ID[T]) String() string { return id.ulid.String() }

// Time returns the millisecond timestamp encoded in the ID's leading bytes.
func (id ID[T]) Time() time.Time { return ulid.Time(id.ulid.Time()) }
