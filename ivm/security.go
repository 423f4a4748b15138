package ivm

import "fmt"

// OperationRequest describes something a guest program is attempting that a
// SecurityManager might deny. ExternCall is the only request kind currently
// defined; it exists as its own type rather than a bare
// uint64 so that future request kinds (e.g. a memory-region write) can be
// added as additional variants without changing the Guard interface.
type OperationRequest struct {
	externCallID uint64
	isExternCall bool
}

// ExternCallRequest builds an OperationRequest for an attempted extern call
// with the given id.
func ExternCallRequest(callID uint64) OperationRequest {
	return OperationRequest{externCallID: callID, isExternCall: true}
}

// ExternCallID returns the call id this request names and whether this
// request is in fact an extern-call request.
func (r OperationRequest) ExternCallID() (uint64, bool) {
	return r.externCallID, r.isExternCall
}

// Guard decides whether a single OperationRequest should be allowed.
type Guard interface {
	ShouldAllow(req OperationRequest) bool
}

// SecurityManager holds an ordered set of guards. A request is allowed only
// if every guard allows it.
type SecurityManager struct {
	guards []Guard
}

// NewSecurityManager builds a SecurityManager from zero or more guards.
func NewSecurityManager(guards ...Guard) *SecurityManager {
	return &SecurityManager{guards: guards}
}

// AddGuard appends a guard to the manager's ordered set.
func (m *SecurityManager) AddGuard(g Guard) {
	m.guards = append(m.guards, g)
}

// IsAllowed is the AND of every guard's ShouldAllow.
func (m *SecurityManager) IsAllowed(req OperationRequest) bool {
	for _, g := range m.guards {
		if !g.ShouldAllow(req) {
			return false
		}
	}
	return true
}

// ExtcGuard denies extern calls matching a single configured id and allows
// everything else.
type ExtcGuard struct {
	ID uint64
}

// ShouldAllow implements Guard.
func (g ExtcGuard) ShouldAllow(req OperationRequest) bool {
	id, ok := req.ExternCallID()
	if !ok {
		return true
	}
	return id != g.ID
}

// InvertedExtcGuard allows only extern calls whose id is in its exceptions
// list, denying everything else.
type InvertedExtcGuard struct {
	Exceptions []uint64
}

// ShouldAllow implements Guard.
func (g InvertedExtcGuard) ShouldAllow(req OperationRequest) bool {
	id, ok := req.ExternCallID()
	if !ok {
		return true
	}
	for _, e := range g.Exceptions {
		if e == id {
			return true
		}
	}
	return false
}

// IllegalOpPolicy chooses how a GuardedExternMap reacts to a denied call.
type IllegalOpPolicy int

const (
	// PolicyPanic aborts the run with a panic naming the offending call id.
	PolicyPanic IllegalOpPolicy = iota
	// PolicySilentFail drops the call without invoking the inner
	// ExternMap and without side effects.
	PolicySilentFail
)

// GuardedExternMap wraps an inner ExternMap, denying calls whose id is in
// guardIDs (or, if Inverted, denying calls whose id is NOT in guardIDs) and
// applying Policy to denied calls. It composes with any ExternMap,
// including another GuardedExternMap or a MultiExternMap.
type GuardedExternMap struct {
	Inner    ExternMap
	GuardIDs map[uint64]struct{}
	Inverted bool
	Policy   IllegalOpPolicy
}

// NewGuardedExternMap builds a GuardedExternMap over inner, denying (or, if
// inverted, exclusively allowing) the given call ids.
func NewGuardedExternMap(inner ExternMap, guardIDs []uint64, inverted bool, policy IllegalOpPolicy) *GuardedExternMap {
	set := make(map[uint64]struct{}, len(guardIDs))
	for _, id := range guardIDs {
		set[id] = struct{}{}
	}
	return &GuardedExternMap{Inner: inner, GuardIDs: set, Inverted: inverted, Policy: policy}
}

// Handle implements ExternMap. A call forwards to Inner iff
// (not contains(id)) XOR Inverted; otherwise Policy decides what happens.
func (g *GuardedExternMap) Handle(ctx *ExecutionContext, callID uint64, vm *VmInstance) {
	_, contains := g.GuardIDs[callID]
	if !contains != g.Inverted {
		g.Inner.Handle(ctx, callID, vm)
		return
	}

	switch g.Policy {
	case PolicyPanic:
		panic(fmt.Sprintf("ivm: illegal extern call %d at execution index %d", callID, vm.ExecutionIndex))
	case PolicySilentFail:
		// no-op
	}
}
