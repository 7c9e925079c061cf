package admission

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsentLedger(t *testing.T) {
	ledger := NewConsentLedger()

	assert.False(t, ledger.HasConsented("tenant-a"))

	ledger.RecordConsent("tenant-a")
	assert.True(t, ledger.HasConsented("tenant-a"))
	assert.False(t, ledger.HasConsented("tenant-b"))

	// 重复记录幂等
	ledger.RecordConsent("tenant-a")
	assert.True(t, ledger.HasConsented("tenant-a"))
}

func TestConsentLedgerConcurrent(t *testing.T) {
	ledger := NewConsentLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.RecordConsent("tenant-a")
			_ = ledger.HasConsented("tenant-a")
		}()
	}
	wg.Wait()

	assert.True(t, ledger.HasConsented("tenant-a"))
}
