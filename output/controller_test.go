package output

import (
	"sync"
	"testing"
	"time"

	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/driver"
	"github.com/richinsley/asiobridge/driverimpl/fakedriver"
	"github.com/richinsley/asiobridge/format"
	"github.com/richinsley/asiobridge/ringbuffer"
)

// countingProducer wraps a RingBuffer to record ProvideAudio invocations.
type countingProducer struct {
	*ringbuffer.RingBuffer
	mu          sync.Mutex
	calls       int
	frameCounts []int
}

func (p *countingProducer) ProvideAudio(scratch *bufferlist.BufferList, frameCount int) {
	p.mu.Lock()
	p.calls++
	p.frameCounts = append(p.frameCounts, frameCount)
	p.mu.Unlock()
	p.RingBuffer.ProvideAudio(scratch, frameCount)
}

type pcmDecoder struct{ f format.Format }

func (d pcmDecoder) Format() format.Format { return d.f }

func newTestController(t *testing.T, channels, preferredBuf int, rate float64) (*Controller, *fakedriver.Driver, *countingProducer) {
	t.Helper()
	drv := fakedriver.New(channels, driver.Float64LSB, rate, preferredBuf)
	producer := &countingProducer{RingBuffer: ringbuffer.New(channels, 4*preferredBuf, rate)}
	ctrl := New(drv, producer, DefaultOptions())
	return ctrl, drv, producer
}

// Open, SetupForDecoder, Start, drive 10 switches of 256 frames,
// RequestStop, observe Running -> Configured and ProvideAudio invoked
// exactly 10 times with frameCount=256.
func TestControllerLifecycleRequestStop(t *testing.T) {
	const channels = 2
	const bufSize = 256
	const rate = 44100.0

	ctrl, drv, ring := newTestController(t, channels, bufSize, rate)

	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := ctrl.State(); got != Open {
		t.Fatalf("state after Open = %v, want Open", got)
	}

	dec := pcmDecoder{f: format.Format{
		Kind:             format.PCM,
		Flags:            format.Float | format.NonInterleaved | format.Packed,
		BitsPerChannel:   64,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		SampleRate:       rate,
		ChannelsPerFrame: channels,
	}}
	if _, err := ctrl.SetupForDecoder(dec); err != nil {
		t.Fatalf("SetupForDecoder: %v", err)
	}
	if got := ctrl.State(); got != Configured {
		t.Fatalf("state after SetupForDecoder = %v, want Configured", got)
	}

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != Running {
		t.Fatalf("state after Start = %v, want Running", got)
	}

	chans := make([][]float64, channels)
	for c := range chans {
		chans[c] = make([]float64, bufSize)
	}
	for i := 0; i < 10; i++ {
		ring.WriteFrames(chans, bufSize)
		drv.Switch()
	}

	ctrl.RequestStop()
	deadline := time.After(400 * time.Millisecond)
	for ctrl.State() == Running {
		select {
		case <-deadline:
			t.Fatalf("controller still Running after 400ms drain window")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := ctrl.State(); got != Configured {
		t.Fatalf("state after RequestStop drain = %v, want Configured", got)
	}
	if drv.Started() {
		t.Fatalf("driver still started after Stop")
	}

	ring.mu.Lock()
	defer ring.mu.Unlock()
	if ring.calls != 10 {
		t.Fatalf("ProvideAudio calls = %d, want 10", ring.calls)
	}
	for i, n := range ring.frameCounts {
		if n != bufSize {
			t.Errorf("call %d frameCount = %d, want %d", i, n, bufSize)
		}
	}
}

// Inject Overload then ResetNeeded via asioMessage; after one drain cycle,
// Reset has executed and left the controller Open.
func TestControllerResetUnderOverload(t *testing.T) {
	const channels = 2
	const bufSize = 128
	const rate = 48000.0

	ctrl, drv, _ := newTestController(t, channels, bufSize, rate)

	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	dec := pcmDecoder{f: format.Format{
		Kind:             format.PCM,
		Flags:            format.Float | format.NonInterleaved | format.Packed,
		BitsPerChannel:   64,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		SampleRate:       rate,
		ChannelsPerFrame: channels,
	}}
	if _, err := ctrl.SetupForDecoder(dec); err != nil {
		t.Fatalf("SetupForDecoder: %v", err)
	}
	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if v := drv.InjectMessage(selOverload, 0); v != 1 {
		t.Fatalf("InjectMessage(overload) = %d, want 1", v)
	}
	if v := drv.InjectMessage(selResetRequest, 0); v != 1 {
		t.Fatalf("InjectMessage(resetRequest) = %d, want 1", v)
	}

	time.Sleep(350 * time.Millisecond) // > one ~5Hz drain cycle

	// Reset leaves the controller Open (re-Init'd, buffers absent);
	// confirm it ran by checking the state came all the way back down
	// from Running.
	if got := ctrl.State(); got != Open {
		t.Fatalf("state after reset = %v, want Open", got)
	}
}
