// Package output implements the driver lifecycle state machine, the
// real-time callback adapter and the mailbox-draining housekeeping task
// that together form the output controller.
package output

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/driver"
	"github.com/richinsley/asiobridge/format"
	"github.com/richinsley/asiobridge/mailbox"
)

// Decoder is the minimal upstream-player contract SetupForDecoder needs:
// the format the decoder will hand the producer.
type Decoder interface {
	Format() format.Format
}

// activeController enforces the single-live-controller invariant demanded
// by the driver callback ABI carrying no user context.
var activeController atomic.Pointer[Controller]

// Controller is the output backend's state machine. The zero value is not
// usable; construct with New.
type Controller struct {
	opts Options

	mu    sync.Mutex // serializes control-domain calls
	state State

	drv      driver.Driver
	producer driver.Producer

	neg negotiated

	outputReadySupported bool
	mailbox              *mailbox.Mailbox

	hkCancel context.CancelFunc
	hkDone   chan struct{}
}

// New constructs a Controller bound to drv and producer, in state Closed.
func New(drv driver.Driver, producer driver.Producer, opts Options) *Controller {
	if opts.MailboxCapacity <= 0 {
		opts.MailboxCapacity = mailbox.MinCapacity
	}
	return &Controller{
		opts:     opts,
		drv:      drv,
		producer: producer,
		state:    Closed,
		mailbox:  mailbox.New(opts.MailboxCapacity),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open initializes the driver passed to New, installing the controller's
// callbacks, and caches outputReady support. It does not enumerate or
// instantiate drivers (the caller constructs the driver.Driver), and
// Driver.Init takes no protocol version.
func (c *Controller) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Closed {
		return fmt.Errorf("output: Open: %w (state=%s)", ErrStateViolation, c.state)
	}

	cb := driver.Callbacks{
		BufferSwitch:         c.bufferSwitch,
		BufferSwitchTimeInfo: c.bufferSwitchTimeInfo,
		SampleRateDidChange:  c.sampleRateDidChange,
		AsioMessage:          c.asioMessage,
	}
	if err := c.drv.Init(cb); err != nil {
		return fmt.Errorf("output: Open: %w: %v", ErrDriverUnavailable, err)
	}

	c.outputReadySupported = c.drv.OutputReadySupported()
	c.state = Open
	return nil
}

// Close disposes driver buffers, clears negotiated state and returns the
// controller to Closed. Calling Close when already Closed returns
// ErrStateViolation without side effects.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return fmt.Errorf("output: Close: %w", ErrStateViolation)
	}

	if c.state == Running {
		if err := c.stopLocked(true); err != nil {
			return err
		}
	}
	if c.neg.bufferInfo != nil {
		if err := c.drv.DisposeBuffers(); err != nil {
			log.Printf("output: Close: DisposeBuffers: %v", err)
		}
	}
	c.neg.reset()
	c.state = Closed
	return nil
}

// SetupForDecoder negotiates IO format, sample rate and buffers for dec,
// derives the ring buffer format from the first negotiated output channel,
// and ensures the producer's ring buffer is sized to hold the required
// lookahead.
func (c *Controller) SetupForDecoder(dec Decoder) (format.Format, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Open && c.state != Configured {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w (state=%s)", ErrStateViolation, c.state)
	}

	decFormat := dec.Format()
	if !decFormat.IsPCM() && !decFormat.IsDSD() {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w", ErrFormatUnsupported)
	}

	if c.neg.bufferInfo != nil {
		if err := c.drv.DisposeBuffers(); err != nil {
			log.Printf("output: SetupForDecoder: DisposeBuffers: %v", err)
		}
		c.neg.reset()
	}

	ioFormat := []byte{driver.IoFormatPCM}
	if decFormat.IsDSD() {
		ioFormat[0] = driver.IoFormatDSD
	}
	if err := c.drv.Future(driver.SelectorSetIoFormat, ioFormat); err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", ErrFormatUnsupported, err)
	}

	if decFormat.SampleRate > 0 {
		if !c.drv.CanSampleRate(decFormat.SampleRate) {
			return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w", ErrRateUnsupported)
		}
		if err := c.drv.SetSampleRate(decFormat.SampleRate); err != nil {
			// Surface the failure rather than silently falling through to
			// whatever rate the driver negotiates.
			return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", ErrRateUnsupported, err)
		}
	}
	rate, err := c.drv.GetSampleRate()
	if err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "GetSampleRate"}, err)
	}
	c.neg.sampleRate = rate

	driverIn, driverOut, err := c.drv.GetChannels()
	if err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "GetChannels"}, err)
	}
	_ = driverIn // inputs are not used by this output-only backend.

	outputCount := driverOut
	if want := int(decFormat.ChannelsPerFrame); want < outputCount {
		outputCount = want
	}
	if outputCount <= 0 {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: no usable output channels", ErrResourceExhausted)
	}

	minBuf, maxBuf, preferredBuf, gran, err := c.drv.GetBufferSize()
	if err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "GetBufferSize"}, err)
	}
	c.neg.minBuf, c.neg.maxBuf, c.neg.preferredBuf, c.neg.bufGranularity = minBuf, maxBuf, preferredBuf, gran

	bufferInfo := make([]driver.BufferInfo, outputCount)
	for i := range bufferInfo {
		bufferInfo[i] = driver.BufferInfo{IsInput: false, ChannelIndex: i}
	}
	if err := c.drv.CreateBuffers(bufferInfo, preferredBuf); err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "CreateBuffers"}, err)
	}
	c.neg.bufferInfo = bufferInfo
	c.neg.outputCount = outputCount

	channelInfo := make([]driver.ChannelInfo, outputCount)
	for i := range channelInfo {
		ci, err := c.drv.GetChannelInfo(i, false)
		if err != nil {
			return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "GetChannelInfo"}, err)
		}
		channelInfo[i] = ci
	}
	c.neg.channelInfo = channelInfo

	inLat, outLat, err := c.drv.GetLatencies()
	if err != nil {
		return format.Format{}, fmt.Errorf("output: SetupForDecoder: %w: %v", &DriverCallError{Call: "GetLatencies"}, err)
	}
	c.neg.inputLatency, c.neg.outputLatency = inLat, outLat

	ringFormat := driver.Describe(channelInfo[0].SampleType, uint(outputCount), c.neg.sampleRate)
	c.neg.ringFormat = ringFormat
	c.neg.scratch = bufferlist.NewScratchView(outputCount)
	c.neg.postOutput = c.outputReadySupported

	required := c.opts.ringMultiple() * preferredBuf
	if c.producer.RingBufferCapacity() < required {
		c.producer.SetRingBufferCapacity(required)
	}

	c.state = Configured
	return ringFormat, nil
}

// Start begins driving the RT callback. Precondition: no other controller
// is currently the active callback owner.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Configured {
		return fmt.Errorf("output: Start: %w (state=%s)", ErrStateViolation, c.state)
	}
	if !activeController.CompareAndSwap(nil, c) {
		return fmt.Errorf("output: Start: %w: another controller is active", ErrStateViolation)
	}
	if err := c.drv.Start(); err != nil {
		activeController.CompareAndSwap(c, nil)
		return fmt.Errorf("output: Start: %w: %v", &DriverCallError{Call: "Start"}, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.hkCancel = cancel
	c.hkDone = make(chan struct{})
	go c.runHousekeeping(ctx)

	c.state = Running
	return nil
}

// Stop halts the RT callback and deregisters as the active owner.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(true)
}

// stopFromHousekeeping is the StopPlayback handler invoked by drainOnce,
// which runs on the housekeeping goroutine itself. It must not join that
// goroutine (it would deadlock waiting on itself); the drain loop observes
// the cancellation and exits on its own next iteration.
func (c *Controller) stopFromHousekeeping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(false)
}

func (c *Controller) stopLocked(join bool) error {
	if c.state != Running {
		return fmt.Errorf("output: Stop: %w (state=%s)", ErrStateViolation, c.state)
	}
	if err := c.drv.Stop(); err != nil {
		return fmt.Errorf("output: Stop: %w: %v", &DriverCallError{Call: "Stop"}, err)
	}
	activeController.CompareAndSwap(c, nil)
	c.state = Configured

	if c.hkCancel != nil {
		c.hkCancel()
		c.hkCancel = nil
		if join {
			// The housekeeping goroutine may itself be blocked on c.mu
			// handling a queued event; release the mutex while joining or
			// neither side can make progress. State is already Configured,
			// so a racing stopFromHousekeeping sees a non-Running state and
			// backs off.
			done := c.hkDone
			c.mu.Unlock()
			<-done
			c.mu.Lock()
		}
	}
	return nil
}

// RequestStop posts StopPlayback to the mailbox. Non-blocking; the actual
// Stop() runs on the next housekeeping drain.
func (c *Controller) RequestStop() {
	c.mailbox.Push(mailbox.StopPlayback)
}

// Reset stops, tears down buffers, re-initializes the driver and refreshes
// postOutput. Buffers remain absent until the next SetupForDecoder.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(true)
}

// resetFromHousekeeping is the ResetNeeded handler invoked by drainOnce,
// which runs on the housekeeping goroutine itself; see stopFromHousekeeping
// for why it must not join that goroutine.
func (c *Controller) resetFromHousekeeping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(false)
}

func (c *Controller) resetLocked(join bool) error {
	if c.state == Running {
		if err := c.stopLocked(join); err != nil {
			return err
		}
	}
	if c.neg.bufferInfo != nil {
		if err := c.drv.DisposeBuffers(); err != nil {
			log.Printf("output: Reset: DisposeBuffers: %v", err)
		}
	}
	c.neg.reset()

	cb := driver.Callbacks{
		BufferSwitch:         c.bufferSwitch,
		BufferSwitchTimeInfo: c.bufferSwitchTimeInfo,
		SampleRateDidChange:  c.sampleRateDidChange,
		AsioMessage:          c.asioMessage,
	}
	if err := c.drv.Init(cb); err != nil {
		c.state = Closed
		return fmt.Errorf("output: Reset: %w: %v", ErrDriverUnavailable, err)
	}
	c.outputReadySupported = c.drv.OutputReadySupported()
	c.state = Open
	return nil
}

// GetDeviceIOFormat is a direct pass-through to the driver's negotiation
// selector, with error translation.
func (c *Controller) GetDeviceIOFormat() error {
	if err := c.drv.Future(driver.SelectorGetIoFormat, nil); err != nil {
		return fmt.Errorf("output: GetDeviceIOFormat: %w: %v", ErrFormatUnsupported, err)
	}
	return nil
}

// SetDeviceIOFormat is a direct pass-through to the driver's negotiation
// selector, with error translation.
func (c *Controller) SetDeviceIOFormat() error {
	if err := c.drv.Future(driver.SelectorSetIoFormat, nil); err != nil {
		return fmt.Errorf("output: SetDeviceIOFormat: %w: %v", ErrFormatUnsupported, err)
	}
	return nil
}

// SampleRate is a direct pass-through to the driver's GetSampleRate.
func (c *Controller) SampleRate() (float64, error) {
	rate, err := c.drv.GetSampleRate()
	if err != nil {
		return 0, fmt.Errorf("output: SampleRate: %w: %v", &DriverCallError{Call: "GetSampleRate"}, err)
	}
	return rate, nil
}

// SetSampleRate is a direct pass-through to the driver's SetSampleRate,
// rejecting rates the driver reports as unsupported.
func (c *Controller) SetSampleRate(rate float64) error {
	if !c.drv.CanSampleRate(rate) {
		return fmt.Errorf("output: SetSampleRate: %w", ErrRateUnsupported)
	}
	if err := c.drv.SetSampleRate(rate); err != nil {
		return fmt.Errorf("output: SetSampleRate: %w: %v", &DriverCallError{Call: "SetSampleRate"}, err)
	}
	return nil
}

func (c *Controller) sampleRateDidChange(rate float64) {
	log.Printf("output: driver reported out-of-band sample rate change to %v Hz", rate)
}
