package output

import (
	"testing"

	"github.com/richinsley/asiobridge/mailbox"
)

// The legacy bufferSwitch shape must synthesize a TimeInfo and delegate to
// the time-info form, producing the same pull from the producer.
func TestLegacyBufferSwitchDelegates(t *testing.T) {
	const bufSize = 128
	ctrl, _, ring := newTestController(t, 2, bufSize, 48000)
	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ctrl.SetupForDecoder(testDecoder(2, 48000)); err != nil {
		t.Fatalf("SetupForDecoder: %v", err)
	}
	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Close()

	ctrl.bufferSwitch(0, false)
	ctrl.bufferSwitch(1, false)

	ring.mu.Lock()
	defer ring.mu.Unlock()
	if ring.calls != 2 {
		t.Fatalf("ProvideAudio calls = %d, want 2", ring.calls)
	}
	for i, n := range ring.frameCounts {
		if n != bufSize {
			t.Errorf("call %d frameCount = %d, want %d", i, n, bufSize)
		}
	}
}

func TestAsioMessageSelectorTable(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2, 128, 48000)

	if got := ctrl.asioMessage(selEngineVersion, 0, nil); got != 2 {
		t.Errorf("engineVersion = %d, want 2", got)
	}
	for _, sel := range []int32{selResyncRequest, selLatenciesChanged, selSupportsTimeInfo, selSupportsTimeCode, selSupportsInputMonitor} {
		if got := ctrl.asioMessage(sel, 0, nil); got != 1 {
			t.Errorf("selector %d = %d, want 1", sel, got)
		}
	}
	if got := ctrl.asioMessage(99, 0, nil); got != 0 {
		t.Errorf("unknown selector = %d, want 0", got)
	}

	// Control selectors acknowledge and enqueue their events in order.
	if got := ctrl.asioMessage(selResetRequest, 0, nil); got != 1 {
		t.Errorf("resetRequest = %d, want 1", got)
	}
	if got := ctrl.asioMessage(selOverload, 0, nil); got != 1 {
		t.Errorf("overload = %d, want 1", got)
	}
	e, ok := ctrl.mailbox.Pop()
	if !ok {
		t.Fatal("mailbox empty after resetRequest")
	}
	if e != mailbox.ResetNeeded {
		t.Errorf("first event = %v, want ResetNeeded", e)
	}
}
