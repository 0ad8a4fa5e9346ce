package output

import (
	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/driver"
	"github.com/richinsley/asiobridge/format"
)

// negotiated is the configuration a Controller owns between SetupForDecoder
// and the next Close/Reset. It is immutable between Start and Stop and is
// mutated only from the control domain, outside the RT callback.
type negotiated struct {
	minBuf, maxBuf, preferredBuf, bufGranularity int
	inputLatency, outputLatency                  int
	sampleRate                                   float64
	postOutput                                   bool

	inputCount, outputCount int
	bufferInfo              []driver.BufferInfo
	channelInfo             []driver.ChannelInfo

	ringFormat format.Format
	scratch    *bufferlist.ScratchView
}

func (n *negotiated) reset() {
	*n = negotiated{}
}
