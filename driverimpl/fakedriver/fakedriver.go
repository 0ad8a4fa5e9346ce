// Package fakedriver is an in-memory driver.Driver used by controller
// lifecycle tests and anywhere no real audio hardware is present.
package fakedriver

import (
	"sync"

	"github.com/richinsley/asiobridge/driver"
)

// Driver is a fully in-process driver.Driver implementation. Buffer
// switches are driven explicitly by tests via Switch, rather than by a
// real RT thread.
type Driver struct {
	mu sync.Mutex

	channels     int
	sampleType   driver.SampleType
	sampleRate   float64
	preferredBuf int

	cb         driver.Callbacks
	inited     bool
	buffers    []driver.BufferInfo
	started    bool
	switchIdx  int32
	samplePos  int64
}

// New creates a fake driver reporting channels output channels of
// sampleType, a fixed sampleRate and preferredBuf frames per period.
func New(channels int, sampleType driver.SampleType, sampleRate float64, preferredBuf int) *Driver {
	return &Driver{
		channels:     channels,
		sampleType:   sampleType,
		sampleRate:   sampleRate,
		preferredBuf: preferredBuf,
	}
}

func (d *Driver) Init(cb driver.Callbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	d.inited = true
	return nil
}

func (d *Driver) OutputReadySupported() bool { return true }
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
	bytesPerFrame := 8 // canonical float64 storage, see driverimpl/paoutput for the real adapter seam
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
		SampleType: d.sampleType,
		Name:       "fake",
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

func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *Driver) Future(selector driver.Selector, payload []byte) error { return nil }

// Switch drives one buffer-switch cycle, as a real RT thread would, for use
// in tests. It alternates the double-buffer index and advances the
// simulated sample position by preferredBuf frames.
func (d *Driver) Switch() {
	d.mu.Lock()
	cb := d.cb
	idx := d.switchIdx
	d.switchIdx ^= 1
	d.samplePos += int64(d.preferredBuf)
	d.mu.Unlock()

	if cb.BufferSwitchTimeInfo != nil {
		cb.BufferSwitchTimeInfo(&driver.TimeInfo{}, idx, false)
	} else if cb.BufferSwitch != nil {
		cb.BufferSwitch(idx, false)
	}
}

// InjectMessage calls the installed AsioMessage callback, simulating the
// driver posting a capability query or control event.
func (d *Driver) InjectMessage(selector, value int32) int32 {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb.AsioMessage == nil {
		return 0
	}
	return cb.AsioMessage(selector, value, nil)
}

// Started reports whether Start has been called more recently than Stop.
func (d *Driver) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}
