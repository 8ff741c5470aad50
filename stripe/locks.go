package stripe

import "sync"

// LockManager serializes fulfillment per trade number, so concurrent webhook
// deliveries for the same order cannot interleave.
type LockManager struct {
	locks sync.Map // tradeNo -> *sync.Mutex
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// LockOrder acquires the lock for the given trade number and returns the
// function that releases it.
func (lm *LockManager) LockOrder(tradeNo string) func() {
	value, _ := lm.locks.LoadOrStore(tradeNo, &sync.Mutex{})
	mtx := value.(*sync.Mutex)
	mtx.Lock()
	return mtx.Unlock
}
