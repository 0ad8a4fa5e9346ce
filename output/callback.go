package output

import (
	"github.com/richinsley/asiobridge/driver"
	"github.com/richinsley/asiobridge/mailbox"
)

// bufferSwitch is the legacy callback shape. It synthesizes a minimal
// TimeInfo from getSamplePosition and delegates to the preferred form.
func (c *Controller) bufferSwitch(index int32, directProcess bool) {
	ti := &driver.TimeInfo{}
	if pos, sysTime, err := c.drv.GetSamplePosition(); err == nil {
		ti.SamplePosition = pos
		ti.SystemTime = sysTime
		ti.SystemTimeValid = true
		ti.SamplePosValid = true
	}
	c.bufferSwitchTimeInfo(ti, index, directProcess)
}

// bufferSwitchTimeInfo is the RT critical path. It must not allocate,
// block on any lock a non-RT thread may hold, log, or re-enter the driver
// beyond outputReady/getSamplePosition.
func (c *Controller) bufferSwitchTimeInfo(timeInfo *driver.TimeInfo, index int32, directProcess bool) *driver.TimeInfo {
	neg := &c.neg // immutable between Start and Stop; safe to read without the control mutex.
	scratch := neg.scratch
	preferredBuf := neg.preferredBuf

	for i, bi := range neg.bufferInfo {
		buf := bi.Buffers[index]
		scratch.Rebind(i, buf)
		scratch.SetByteSize(i, preferredBuf*8) // ring frames are float64
	}

	c.producer.ProvideAudio(scratch.BufferList, preferredBuf)

	if neg.postOutput {
		c.drv.OutputReady()
	}

	return timeInfo
}

// ASIO capability/control selectors consulted by asioMessage, matching the
// real ASIO SDK's kAsio* selector numbering.
const (
	selEngineVersion        = 2
	selResetRequest         = 3
	selResyncRequest        = 5
	selLatenciesChanged     = 6
	selSupportsTimeInfo     = 7
	selSupportsTimeCode     = 8
	selSupportsInputMonitor = 10
	selOverload             = 15
)

// asioMessage answers capability queries and posts control events to the
// mailbox. It never blocks: mailbox.Push drops on overflow.
func (c *Controller) asioMessage(selector, value int32, message []byte) int32 {
	switch selector {
	case selResetRequest:
		c.mailbox.Push(mailbox.ResetNeeded)
		return 1
	case selOverload:
		c.mailbox.Push(mailbox.Overload)
		return 1
	case selEngineVersion:
		return 2
	case selResyncRequest, selLatenciesChanged, selSupportsTimeInfo, selSupportsTimeCode, selSupportsInputMonitor:
		return 1
	}
	return 0
}
