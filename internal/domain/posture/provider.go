package posture

import (
	"sync/atomic"
)

// PolicyProvider hands out the current policy. Swap may be called while
// readers are evaluating; each reader sees one complete policy.
type PolicyProvider struct {
	current atomic.Pointer[Policy]
}

func NewPolicyProvider(p Policy) *PolicyProvider {
	pp := &PolicyProvider{}
	pp.Swap(p)
	return pp
}

func (pp *PolicyProvider) Current() Policy {
	return *pp.current.Load()
}

func (pp *PolicyProvider) Swap(p Policy) {
	pp.current.Store(&p)
}
