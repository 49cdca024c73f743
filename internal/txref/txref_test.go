package txref

import (
	"strings"
	"sync"
	"testing"
)

func TestPrefixes(t *testing.T) {
	if got := NewDeposit(); !strings.HasPrefix(got, DepositPrefix) {
		t.Errorf("NewDeposit() = %q, want %s prefix", got, DepositPrefix)
	}
	if got := NewWithdrawal(); !strings.HasPrefix(got, WithdrawalPrefix) {
		t.Errorf("NewWithdrawal() = %q, want %s prefix", got, WithdrawalPrefix)
	}
	if got := NewRefund(); !strings.HasPrefix(got, RefundPrefix) {
		t.Errorf("NewRefund() = %q, want %s prefix", got, RefundPrefix)
	}
	if !IsDeposit(NewDeposit()) {
		t.Error("IsDeposit rejected a deposit reference")
	}
	if IsDeposit(NewWithdrawal()) {
		t.Error("IsDeposit accepted a withdrawal reference")
	}
}

func TestUniqueUnderConcurrency(t *testing.T) {
	const perG, goroutines = 200, 10

	var mu sync.Mutex
	seen := make(map[string]bool, perG*goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				ref := NewDeposit()
				mu.Lock()
				if seen[ref] {
					t.Errorf("duplicate reference %q", ref)
				}
				seen[ref] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != perG*goroutines {
		t.Errorf("generated %d unique references, want %d", len(seen), perG*goroutines)
	}
}
