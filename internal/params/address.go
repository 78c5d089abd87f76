package params

import "sync"

// Address is one resolved leaf. The identity fields are fixed when the tree
// is built; the cached value and flags change as the device is read and
// written.
type Address struct {
	Addr   uint32
	Size   int
	Class  *Class
	Member int

	mu          sync.Mutex
	value       uint32
	known       bool
	blacklisted bool
}

// Name returns the leaf's member name.
func (a *Address) Name() string {
	return a.Class.Members[a.Member].Name
}

// Value returns the cached value and whether it has been read or written.
func (a *Address) Value() (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, a.known
}

// SetValue caches v and marks the value known.
func (a *Address) SetValue(v uint32) {
	a.mu.Lock()
	a.value = v
	a.known = true
	a.mu.Unlock()
}

// Forget drops the cached value.
func (a *Address) Forget() {
	a.mu.Lock()
	a.value = 0
	a.known = false
	a.mu.Unlock()
}

// Blacklisted reports whether the address is flagged unreachable.
func (a *Address) Blacklisted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blacklisted
}

// SetBlacklisted sets or clears the unreachable flag.
func (a *Address) SetBlacklisted(b bool) {
	a.mu.Lock()
	a.blacklisted = b
	a.mu.Unlock()
}
