// Package paoutput implements driver.Driver on top of
// github.com/gordonklaus/portaudio.
//
// PortAudio does not expose raw ASIO-style double-buffer pointers the way
// the driver.Driver contract assumes: CreateBuffers instead allocates this
// package's own float64-backed double buffers (matching
// driverimpl/fakedriver's contract), and the PortAudio output callback
// copies the currently-active one down to the []float32 slice PortAudio
// hands it. This copy is the adapter seam the real ASIO ABI would not need.
package paoutput

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"unsafe"

	"github.com/gordonklaus/portaudio"

	"github.com/richinsley/asiobridge/driver"
)

// Driver is a driver.Driver backed by one PortAudio output stream.
type Driver struct {
	mu sync.Mutex

	deviceHint   string
	channels     int
	sampleRate   float64
	preferredBuf int

	stream    *portaudio.Stream
	cb        driver.Callbacks
	buffers   []driver.BufferInfo
	activeIdx int32
	samplePos int64
}

// New creates a PortAudio-backed driver targeting channels output channels
// at sampleRate, with preferredBuf frames per period. deviceHint selects a
// host output device by substring match against its name; empty selects
// the host API's default output device.
func New(deviceHint string, channels int, sampleRate float64, preferredBuf int) *Driver {
	return &Driver{
		deviceHint:   deviceHint,
		channels:     channels,
		sampleRate:   sampleRate,
		preferredBuf: preferredBuf,
	}
}

func (d *Driver) Init(cb driver.Callbacks) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("paoutput: initialize: %w", err)
	}
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
	return nil
}

func (d *Driver) OutputReadySupported() bool { return false }
func (d *Driver) OutputReady() driver.Status { return driver.OK }

func (d *Driver) GetChannels() (inputCount, outputCount int, err error) {
	return 0, d.channels, nil
}

func (d *Driver) GetBufferSize() (min, max, preferred, granularity int, err error) {
	return d.preferredBuf, d.preferredBuf, d.preferredBuf, 0, nil
}

func (d *Driver) CreateBuffers(info []driver.BufferInfo, preferredSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	const bytesPerFrame = 8 // canonical float64 double buffers, see package doc
	for i := range info {
		info[i].Buffers[0] = make([]byte, preferredSize*bytesPerFrame)
		info[i].Buffers[1] = make([]byte, preferredSize*bytesPerFrame)
	}
	d.buffers = info
	return nil
}

func (d *Driver) DisposeBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers = nil
	return nil
}

func (d *Driver) GetChannelInfo(channel int, isInput bool) (driver.ChannelInfo, error) {
	return driver.ChannelInfo{
		Channel:    channel,
		IsInput:    isInput,
		IsActive:   true,
		SampleType: driver.Float64LSB,
		Name:       fmt.Sprintf("paoutput ch%d", channel),
	}, nil
}

func (d *Driver) GetLatencies() (input, output int, err error) {
	return 0, d.preferredBuf, nil
}

func (d *Driver) GetSamplePosition() (pos, sysTime int64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.samplePos, 0, nil
}

func (d *Driver) GetSampleRate() (float64, error) { return d.sampleRate, nil }

func (d *Driver) SetSampleRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRate = rate
	return nil
}

func (d *Driver) CanSampleRate(rate float64) bool { return rate > 0 }

func (d *Driver) Future(selector driver.Selector, payload []byte) error { return nil }

func (d *Driver) outputDevice() (*portaudio.DeviceInfo, error) {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("paoutput: DefaultHostApi: %w", err)
	}
	if d.deviceHint == "" {
		return host.DefaultOutputDevice, nil
	}
	for _, dev := range host.Devices {
		if dev.MaxOutputChannels > 0 && strings.Contains(dev.Name, d.deviceHint) {
			return dev, nil
		}
	}
	log.Printf("paoutput: no output device matching %q, falling back to default", d.deviceHint)
	return host.DefaultOutputDevice, nil
}

// Start opens and starts the PortAudio output stream.
func (d *Driver) Start() error {
	dev, err := d.outputDevice()
	if err != nil {
		return err
	}

	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = d.channels
	params.SampleRate = d.sampleRate
	params.FramesPerBuffer = d.preferredBuf

	stream, err := portaudio.OpenStream(params, d.paCallback)
	if err != nil {
		return fmt.Errorf("paoutput: OpenStream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("paoutput: Stream.Start: %w", err)
	}

	d.mu.Lock()
	d.stream = stream
	d.mu.Unlock()
	return nil
}

// Stop closes the PortAudio stream and terminates the PortAudio host API.
func (d *Driver) Stop() error {
	d.mu.Lock()
	stream := d.stream
	d.stream = nil
	d.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Close(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("paoutput: Stream.Close: %w", err)
	}
	return portaudio.Terminate()
}

// paCallback is PortAudio's RT thread entry point. It trampolines into the
// installed ASIO-style callback to fill the currently-inactive internal
// double buffer, then converts it to float32 and interleaves it into
// PortAudio's output slice (the adapter seam described in the package doc).
func (d *Driver) paCallback(out []float32) {
	d.mu.Lock()
	cb := d.cb
	buffers := d.buffers
	idx := d.activeIdx
	d.activeIdx ^= 1
	d.samplePos += int64(d.preferredBuf)
	channels := d.channels
	d.mu.Unlock()

	if cb.BufferSwitchTimeInfo != nil {
		cb.BufferSwitchTimeInfo(&driver.TimeInfo{}, idx, false)
	} else if cb.BufferSwitch != nil {
		cb.BufferSwitch(idx, false)
	}

	frames := len(out) / channels
	for c := 0; c < channels && c < len(buffers); c++ {
		data := buffers[c].Buffers[idx]
		if len(data) == 0 {
			continue
		}
		n := len(data) / 8
		src := unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), n)
		for i := 0; i < frames; i++ {
			var v float32
			if i < n {
				v = float32(src[i])
			}
			out[i*channels+c] = v
		}
	}
}
