package ivm

import "testing"

func TestMultiExternMapRoutesByRange(t *testing.T) {
	low := &recordingExternMap{}
	high := &recordingExternMap{}
	m := NewMultiExternMap(
		MultiRoute{Low: 0, High: 9, Map: low},
		MultiRoute{Low: 10, High: 19, Map: high},
	)

	vm := NewVmInstance(DefaultProgramOptions(), make([]byte, 4), 0)
	m.Handle(nil, 3, vm)
	m.Handle(nil, 15, vm)

	assert(t, low.calls == 1 && low.lastCallID == 3, "expected low route to see call id 3")
	assert(t, high.calls == 1 && high.lastCallID == 15, "expected high route to see call id 15")
}

func TestMultiExternMapUnmatchedIDPanics(t *testing.T) {
	m := NewMultiExternMap(MultiRoute{Low: 0, High: 9, Map: &recordingExternMap{}})
	vm := NewVmInstance(DefaultProgramOptions(), make([]byte, 4), 0)

	defer func() {
		r := recover()
		assert(t, r != nil, "expected panic for call id matching no route")
	}()
	m.Handle(nil, 100, vm)
}

func TestNewMultiExternMapPanicsOnOverlap(t *testing.T) {
	defer func() {
		r := recover()
		assert(t, r != nil, "expected panic for overlapping routes")
	}()
	NewMultiExternMap(
		MultiRoute{Low: 0, High: 10, Map: &recordingExternMap{}},
		MultiRoute{Low: 5, High: 15, Map: &recordingExternMap{}},
	)
}
