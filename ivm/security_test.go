package ivm

import "testing"

func TestExtcGuardDeniesExactID(t *testing.T) {
	g := ExtcGuard{ID: 5}
	assert(t, !g.ShouldAllow(ExternCallRequest(5)), "expected id 5 denied")
	assert(t, g.ShouldAllow(ExternCallRequest(6)), "expected id 6 allowed")
}

func TestInvertedExtcGuardAllowsOnlyExceptions(t *testing.T) {
	g := InvertedExtcGuard{Exceptions: []uint64{1, 2}}
	assert(t, g.ShouldAllow(ExternCallRequest(1)), "expected id 1 allowed")
	assert(t, g.ShouldAllow(ExternCallRequest(2)), "expected id 2 allowed")
	assert(t, !g.ShouldAllow(ExternCallRequest(3)), "expected id 3 denied")
}

func TestSecurityManagerIsAndComposed(t *testing.T) {
	mgr := NewSecurityManager(ExtcGuard{ID: 1}, InvertedExtcGuard{Exceptions: []uint64{2, 3}})
	assert(t, !mgr.IsAllowed(ExternCallRequest(1)), "expected id 1 denied by ExtcGuard")
	assert(t, !mgr.IsAllowed(ExternCallRequest(9)), "expected id 9 denied by InvertedExtcGuard")
	assert(t, mgr.IsAllowed(ExternCallRequest(2)), "expected id 2 allowed by both guards")
}

func TestSecurityManagerAddGuard(t *testing.T) {
	mgr := NewSecurityManager()
	assert(t, mgr.IsAllowed(ExternCallRequest(42)), "expected empty manager to allow everything")
	mgr.AddGuard(ExtcGuard{ID: 42})
	assert(t, !mgr.IsAllowed(ExternCallRequest(42)), "expected newly added guard to deny id 42")
}

func TestGuardedExternMapDeniesAndForwards(t *testing.T) {
	rec := &recordingExternMap{}
	guarded := NewGuardedExternMap(rec, []uint64{1}, false, PolicySilentFail)
	vm := NewVmInstance(DefaultProgramOptions(), make([]byte, 4), 0)

	guarded.Handle(nil, 1, vm)
	assert(t, rec.calls == 0, "expected denied call id 1 not to reach inner map")

	guarded.Handle(nil, 2, vm)
	assert(t, rec.calls == 1, "expected allowed call id 2 to reach inner map")
	assert(t, rec.lastCallID == 2, "expected inner map to see call id 2")
}

func TestGuardedExternMapInvertedAllowsOnlyListed(t *testing.T) {
	rec := &recordingExternMap{}
	guarded := NewGuardedExternMap(rec, []uint64{1}, true, PolicySilentFail)
	vm := NewVmInstance(DefaultProgramOptions(), make([]byte, 4), 0)

	guarded.Handle(nil, 1, vm)
	assert(t, rec.calls == 1, "expected inverted guard to allow listed id 1")

	guarded.Handle(nil, 2, vm)
	assert(t, rec.calls == 1, "expected inverted guard to deny unlisted id 2")
}

func TestGuardedExternMapPanicPolicy(t *testing.T) {
	rec := &recordingExternMap{}
	guarded := NewGuardedExternMap(rec, []uint64{1}, false, PolicyPanic)
	vm := NewVmInstance(DefaultProgramOptions(), make([]byte, 4), 0)

	defer func() {
		r := recover()
		assert(t, r != nil, "expected panic on denied call under PolicyPanic")
	}()
	guarded.Handle(nil, 1, vm)
}
