// Package txref generates the externally-visible references that correlate
// local transaction records with the payment provider. A ULID gives the
// timestamp+random shape the provider expects while staying lexically
// sortable.
package txref

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DepositPrefix    = "GBYA-TX-"
	WithdrawalPrefix = "GBYA-WD-"
	RefundPrefix     = "GBYA-RF-"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

func generate(prefix string) string {
	mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	mu.Unlock()
	return prefix + id.String()
}

func NewDeposit() string    { return generate(DepositPrefix) }
func NewWithdrawal() string { return generate(WithdrawalPrefix) }
func NewRefund() string     { return generate(RefundPrefix) }

// IsDeposit reports whether ref carries the deposit prefix. Used only for
// routing/metrics; user identity is never derived from the reference.
func IsDeposit(ref string) bool { return strings.HasPrefix(ref, DepositPrefix) }
