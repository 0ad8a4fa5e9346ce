// Package ringbuffer provides the concrete producer-owned ring buffer that
// stands in for the upstream player. It is a lock-free
// single-producer/single-consumer, multi-channel float64 FIFO:
// WriteFrames/WriteConverted run on the producer's own goroutine,
// ProvideAudio runs on the driver's RT thread, and neither side ever blocks
// or takes a lock the other might hold. It follows the same SPSC atomic
// head/tail discipline as mailbox.Mailbox, generalized from a byte ring of
// fixed-size event records to a capacity-aware float64-per-channel ring
// matching the deinterleaved BufferList shape the convert package produces.
package ringbuffer

import (
	"log"
	"sync/atomic"

	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/convert"
	"github.com/richinsley/asiobridge/format"
)

// RingBuffer is a lock-free, multi-channel, native float64 FIFO. It
// implements driver.Producer. The zero value is not usable; construct with
// New.
type RingBuffer struct {
	channels int
	rate     float64

	data     [][]float64 // data[c] is a circular buffer of capacity frames, capacity a power of two
	capacity int
	mask     int

	// writePos advances only on the producer side (WriteFrames/WriteConverted);
	// readPos advances only on the RT consumer side (ProvideAudio). Both are
	// monotonic frame counters, read from both sides but written from only
	// one each, exactly as mailbox.Mailbox's head/tail are.
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a RingBuffer for the given channel count, sample rate, and an
// initial capacity in frames rounded up to the next power of two (so index
// masking can replace modulo on the RT path).
func New(channels, capacityFrames int, sampleRate float64) *RingBuffer {
	if capacityFrames < 1 {
		capacityFrames = 1
	}
	capacityFrames = nextPowerOfTwo(capacityFrames)
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, capacityFrames)
	}
	return &RingBuffer{
		channels: channels,
		rate:     sampleRate,
		data:     data,
		capacity: capacityFrames,
		mask:     capacityFrames - 1,
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// RingBufferFormat implements driver.Producer: the ring always stores
// native-endian packed float64, non-interleaved. channels/rate are fixed at
// construction, so this needs no synchronization.
func (r *RingBuffer) RingBufferFormat() format.Format {
	return format.Format{
		Kind:             format.PCM,
		Flags:            format.Float | format.NonInterleaved | format.Packed,
		BitsPerChannel:   64,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		SampleRate:       r.rate,
		ChannelsPerFrame: uint(r.channels),
	}
}

// RingBufferCapacity implements driver.Producer.
func (r *RingBuffer) RingBufferCapacity() int {
	return r.capacity
}

// SetRingBufferCapacity implements driver.Producer, growing the ring to at
// least frames (rounded up to a power of two) and preserving all currently
// unread frames. This is a control-domain operation invoked only from
// SetupForDecoder while the RT callback is not running; it is not safe to
// call concurrently with WriteFrames or ProvideAudio.
func (r *RingBuffer) SetRingBufferCapacity(frames int) {
	frames = nextPowerOfTwo(frames)
	if frames <= r.capacity {
		return
	}
	write := r.writePos.Load()
	read := r.readPos.Load()
	filled := int(write - read)

	newData := make([][]float64, r.channels)
	for c := range newData {
		nd := make([]float64, frames)
		for i := 0; i < filled; i++ {
			nd[i] = r.data[c][(int(read)+i)&r.mask]
		}
		newData[c] = nd
	}
	r.data = newData
	r.capacity = frames
	r.mask = frames - 1
	r.readPos.Store(0)
	r.writePos.Store(uint64(filled))
}

// WriteFrames appends frames of already-deinterleaved float64 audio, one
// slice per channel. If the ring lacks room, the producer drops the
// newest frames that don't fit (logged) rather than advancing the
// consumer's read position, which only the RT side may do.
func (r *RingBuffer) WriteFrames(chans [][]float64, frames int) {
	write := r.writePos.Load()
	read := r.readPos.Load()
	free := r.capacity - int(write-read)
	if frames > free {
		log.Printf("ringbuffer: write of %d frames exceeds %d free, dropping %d newest frames", frames, free, frames-free)
		frames = free
	}
	if frames <= 0 {
		return
	}

	for c := 0; c < r.channels && c < len(chans); c++ {
		src := chans[c]
		dst := r.data[c]
		for i := 0; i < frames; i++ {
			var v float64
			if i < len(src) {
				v = src[i]
			}
			dst[(int(write)+i)&r.mask] = v
		}
	}
	r.writePos.Store(write + uint64(frames))
}

// WriteConverted decodes frames of raw PCM audio in src's layout using the
// convert dispatcher and appends the resulting float64 frames. This is the
// bridge between a decoder's native sample layout and the ring's canonical
// deinterleaved float64 storage.
func (r *RingBuffer) WriteConverted(src format.Format, in *bufferlist.BufferList, frames int) error {
	disp, err := convert.NewDispatcher(src)
	if err != nil {
		return err
	}
	out := bufferlist.NewFloat64Output(r.channels, frames)
	n, err := disp.Dispatch(in, out, frames)
	if err != nil {
		return err
	}
	chans := make([][]float64, r.channels)
	for c := 0; c < r.channels; c++ {
		chans[c] = out.Float64Channel(c)
	}
	r.WriteFrames(chans, n)
	return nil
}

// ProvideAudio implements driver.Producer: a bounded, lock-free pull of
// frameCount frames into scratch, safe to call from the RT callback. It
// never allocates and never blocks; on underrun the unfilled tail is
// written as silence.
func (r *RingBuffer) ProvideAudio(scratch *bufferlist.BufferList, frameCount int) {
	write := r.writePos.Load()
	read := r.readPos.Load()
	avail := int(write - read)
	if avail > frameCount {
		avail = frameCount
	}

	for c := 0; c < scratch.Len(); c++ {
		dst := scratch.Float64Capacity(c)
		if len(dst) < frameCount {
			continue
		}
		if c < r.channels {
			src := r.data[c]
			for i := 0; i < avail; i++ {
				dst[i] = src[(int(read)+i)&r.mask]
			}
		}
		for i := avail; i < frameCount; i++ {
			dst[i] = 0
		}
	}

	r.readPos.Store(read + uint64(avail))
}
