package ivm

import (
	"math"
	"sync/atomic"
	"time"
)

// Reference call ids for TimerExternMap.
const (
	// EXTCTimerArm pops a 4-byte little-endian microsecond duration off the
	// data stack and (re)arms the single one-shot timer with it.
	EXTCTimerArm uint64 = 0
	// EXTCTimerPoll pushes a single byte to the data stack: 1 if the timer
	// has fired since the last poll, 0 otherwise. Polling clears the flag.
	EXTCTimerPoll uint64 = 1
)

// TimerExternMap is a one-shot interval timer exposed as two extern calls:
// arm and poll. The timer itself runs on its own goroutine the way the
// teacher's system timer device does, but no interrupt table exists here —
// a guest program observes expiry by polling, since I_EXTERN_CALL has no
// return channel of its own beyond the data stack and ctx.
//
// This is a host capability surfaced through the extern-call boundary, not
// concurrency inside the VM's fetch/decode loop: Step itself stays
// single-threaded, and TimerExternMap only ever touches VM state from
// within a Handle call.
type TimerExternMap struct {
	armChan chan time.Duration
	fired   atomic.Bool
	closed  atomic.Bool
}

// NewTimerExternMap starts the timer goroutine and returns a ready map.
// Callers should call Close once the VM run using it is done.
func NewTimerExternMap() *TimerExternMap {
	t := &TimerExternMap{
		armChan: make(chan time.Duration, 1),
	}

	go func() {
		timer := time.NewTimer(time.Duration(math.MaxInt64))
		for {
			if t.closed.Load() {
				return
			}
			select {
			case <-timer.C:
				t.fired.Store(true)
			case d := <-t.armChan:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d)
			}
		}
	}()

	return t
}

// Close stops the timer goroutine. Safe to call once.
func (t *TimerExternMap) Close() {
	t.closed.Store(true)
	// Wake the goroutine so it observes closed instead of blocking forever.
	select {
	case t.armChan <- 0:
	default:
	}
}

// Handle implements ExternMap.
func (t *TimerExternMap) Handle(ctx *ExecutionContext, callID uint64, vm *VmInstance) {
	switch callID {
	case EXTCTimerArm:
		data, ok := vm.PopData()
		if !ok || len(data) < 4 {
			panic("ivm: call to timer@ARM with missing duration operand")
		}
		micros := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		t.armChan <- time.Duration(micros) * time.Microsecond

	case EXTCTimerPoll:
		if t.fired.CompareAndSwap(true, false) {
			vm.PushData([]byte{1})
		} else {
			vm.PushData([]byte{0})
		}

	default:
		panic("ivm: unrecognized timer call id")
	}
}
