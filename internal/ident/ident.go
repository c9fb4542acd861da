// Package ident provides the identifier sources blocks are numbered from.
package ident

import (
	"fmt"
	"io"
	"math/rand"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator returns a new identifier on every call. Implementations must be
// safe for concurrent use.
type Generator func() string

var (
	entropy     io.Reader
	entropyOnce sync.Once
)

// UUID generates random (v4) UUID strings.
func UUID() string {
	return uuid.NewString()
}

func ulidEntropy() io.Reader {
	entropyOnce.Do(func() {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		entropy = &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rng, 0),
		}
	})
	return entropy
}

// ULID generates lexically sortable identifiers.
func ULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy()).String()
}

var ulidRe = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

// ValidULID reports whether id is a canonical ULID string.
func ValidULID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil && ulidRe.MatchString(id)
}

// Sequence returns a deterministic generator: prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// ByName resolves a configured generator kind.
func ByName(kind string) (Generator, error) {
	switch kind {
	case "", "uuid":
		return UUID, nil
	case "ulid":
		return ULID, nil
	default:
		return nil, fmt.Errorf("unknown id generator %q", kind)
	}
}
