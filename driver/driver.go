// Package driver defines the external driver and producer contracts
// consumed by the output controller, plus the sample-type vocabulary a
// driver channel can report.
//
// Everything in this file is an interface or plain data: the driver-loading
// ABI wrapper that yields a concrete Driver lives elsewhere. Two concrete
// drivers ship in sibling driverimpl/ packages: a fake for tests and a real
// github.com/gordonklaus/portaudio-backed one.
package driver

import (
	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/format"
)

// FormatDescriptor describes one channel as reported by a driver.
type FormatDescriptor struct {
	ChannelIndex int
	IsInput      bool
	SampleType   SampleType
}

// Status is the driver call result code. OK indicates success.
type Status int

const OK Status = 0

// Selector identifies a "future" negotiation request.
type Selector int

const (
	SelectorGetIoFormat Selector = iota
	SelectorSetIoFormat
)

// IO-format payload bytes for the SetIoFormat selector: the first payload
// byte names the encoding family being requested.
const (
	IoFormatPCM byte = 0
	IoFormatDSD byte = 1
)

// Callbacks is the set of functions the controller installs with the
// driver so the driver can invoke the real-time path and report
// capability/control events.
type Callbacks struct {
	// BufferSwitch is the legacy per-switch entry point.
	BufferSwitch func(doubleBufferIndex int32, directProcess bool)
	// BufferSwitchTimeInfo is the preferred per-switch entry point.
	BufferSwitchTimeInfo func(timeInfo *TimeInfo, doubleBufferIndex int32, directProcess bool) *TimeInfo
	// SampleRateDidChange notifies of an out-of-band sample rate change.
	SampleRateDidChange func(sampleRate float64)
	// AsioMessage handles capability queries and control events.
	AsioMessage func(selector, value int32, message []byte) int32
}

// TimeInfo is the minimal time-stamp payload passed to
// BufferSwitchTimeInfo.
type TimeInfo struct {
	SystemTime       int64
	SamplePosition   int64
	SystemTimeValid  bool
	SamplePosValid   bool
}

// BufferInfo describes one negotiated driver buffer slot. Buffers holds the
// two double-buffer pointers (index 0 and 1) the driver owns.
type BufferInfo struct {
	IsInput      bool
	ChannelIndex int
	Buffers      [2][]byte
}

// ChannelInfo mirrors what the driver reports back per negotiated channel.
type ChannelInfo struct {
	Channel    int
	IsInput    bool
	IsActive   bool
	Group      int
	SampleType SampleType
	Name       string
}

// Driver is the driver-loading ABI wrapper's contract. A real
// implementation wraps a vendor SDK or a host audio API; asiobridge ships
// driverimpl/fakedriver (tests) and driverimpl/paoutput
// (github.com/gordonklaus/portaudio).
type Driver interface {
	Init(cb Callbacks) error
	OutputReadySupported() bool
	OutputReady() Status
	GetChannels() (inputCount, outputCount int, err error)
	GetBufferSize() (min, max, preferred, granularity int, err error)
	CreateBuffers(info []BufferInfo, preferredSize int) error
	DisposeBuffers() error
	GetChannelInfo(channel int, isInput bool) (ChannelInfo, error)
	GetLatencies() (input, output int, err error)
	GetSamplePosition() (pos, sysTime int64, err error)
	GetSampleRate() (float64, error)
	SetSampleRate(rate float64) error
	CanSampleRate(rate float64) bool
	Start() error
	Stop() error
	Future(selector Selector, payload []byte) error
}

// Producer is the upstream player's contract: it owns the ring buffer the
// controller pulls from in the RT callback.
type Producer interface {
	// RingBufferFormat reports the format frames are stored in.
	RingBufferFormat() format.Format
	// RingBufferCapacity returns the current ring buffer capacity in frames.
	RingBufferCapacity() int
	// SetRingBufferCapacity requests the producer resize its ring buffer to
	// at least the given number of frames.
	SetRingBufferCapacity(frames int)
	// ProvideAudio performs a bounded, non-blocking pull of frameCount
	// frames into scratch. It must write silence on underrun and must
	// never block or allocate.
	ProvideAudio(scratch *bufferlist.BufferList, frameCount int)
}
