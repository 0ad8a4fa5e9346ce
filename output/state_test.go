package output

import (
	"errors"
	"testing"

	"github.com/richinsley/asiobridge/format"
)

func testDecoder(channels uint, rate float64) pcmDecoder {
	return pcmDecoder{f: format.Format{
		Kind:             format.PCM,
		Flags:            format.Float | format.NonInterleaved | format.Packed,
		BitsPerChannel:   64,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		SampleRate:       rate,
		ChannelsPerFrame: channels,
	}}
}

func TestOperationsRejectWrongState(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2, 128, 48000)

	// Everything but Open is a violation while Closed.
	if _, err := ctrl.SetupForDecoder(testDecoder(2, 48000)); !errors.Is(err, ErrStateViolation) {
		t.Errorf("SetupForDecoder while Closed: err = %v, want ErrStateViolation", err)
	}
	if err := ctrl.Start(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("Start while Closed: err = %v, want ErrStateViolation", err)
	}
	if err := ctrl.Stop(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("Stop while Closed: err = %v, want ErrStateViolation", err)
	}
	if err := ctrl.Close(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("Close while Closed: err = %v, want ErrStateViolation", err)
	}

	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ctrl.Open(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("second Open: err = %v, want ErrStateViolation", err)
	}
	// Start requires Configured, not merely Open.
	if err := ctrl.Start(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("Start while Open: err = %v, want ErrStateViolation", err)
	}

	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := ctrl.State(); got != Closed {
		t.Fatalf("state after Close = %v, want Closed", got)
	}
}

func TestStartWhileRunningIsViolation(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2, 128, 48000)
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

	if err := ctrl.Start(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("Start while Running: err = %v, want ErrStateViolation", err)
	}
}

func TestSecondControllerCannotStart(t *testing.T) {
	first, _, _ := newTestController(t, 2, 128, 48000)
	if err := first.Open(); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := first.SetupForDecoder(testDecoder(2, 48000)); err != nil {
		t.Fatalf("first SetupForDecoder: %v", err)
	}
	if err := first.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Close()

	second, _, _ := newTestController(t, 2, 128, 48000)
	if err := second.Open(); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if _, err := second.SetupForDecoder(testDecoder(2, 48000)); err != nil {
		t.Fatalf("second SetupForDecoder: %v", err)
	}
	if err := second.Start(); !errors.Is(err, ErrStateViolation) {
		t.Errorf("second Start: err = %v, want ErrStateViolation", err)
	}

	// Once the first stops, the second may become the active owner.
	if err := first.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := second.Start(); err != nil {
		t.Errorf("second Start after first Stop: %v", err)
	}
	second.Close()
}

func TestSetupForDecoderRejectsNonAudioFormat(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2, 128, 48000)
	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctrl.Close()

	bad := pcmDecoder{f: format.Format{Kind: format.Kind(7)}}
	if _, err := ctrl.SetupForDecoder(bad); !errors.Is(err, ErrFormatUnsupported) {
		t.Errorf("err = %v, want ErrFormatUnsupported", err)
	}
	if got := ctrl.State(); got != Open {
		t.Errorf("state after failed setup = %v, want Open (unchanged)", got)
	}
}

func TestSetupForDecoderGrowsRingBuffer(t *testing.T) {
	const bufSize = 512
	ctrl, _, ring := newTestController(t, 2, bufSize, 48000)
	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctrl.Close()

	if _, err := ctrl.SetupForDecoder(testDecoder(2, 48000)); err != nil {
		t.Fatalf("SetupForDecoder: %v", err)
	}
	if got := ring.RingBufferCapacity(); got < 4*bufSize {
		t.Errorf("ring capacity = %d, want >= %d", got, 4*bufSize)
	}
}

func TestSetupForDecoderDerivesRingFormat(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2, 256, 44100)
	if err := ctrl.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctrl.Close()

	f, err := ctrl.SetupForDecoder(testDecoder(2, 44100))
	if err != nil {
		t.Fatalf("SetupForDecoder: %v", err)
	}
	if !f.IsPCM() || !f.Flags.Has(format.Float) || f.BitsPerChannel != 64 {
		t.Errorf("ring format = %+v, want native float64 PCM", f)
	}
	if f.ChannelsPerFrame != 2 || f.SampleRate != 44100 {
		t.Errorf("ring format channels/rate = %d/%v, want 2/44100", f.ChannelsPerFrame, f.SampleRate)
	}
}
