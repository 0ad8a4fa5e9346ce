// Package convert implements the sample-format dispatch matrix: a
// dispatcher chosen once from a source AudioFormat, and the leaf conversion
// kernels it chooses between, converting one interleaved (or
// pre-deinterleaved) frame block into deinterleaved float64 channels.
package convert

import (
	"fmt"

	"github.com/richinsley/asiobridge/bufferlist"
	"github.com/richinsley/asiobridge/format"
)

// Dispatcher converts frame blocks described by a fixed source AudioFormat.
// Construct once per format (preconditions are validated here, not per
// call); Dispatch is then safe to call repeatedly from the RT path with no
// further validation or allocation.
type Dispatcher struct {
	src                 format.Format
	kernel              kernelFn
	interleavedChannels int
	sampleWidth         int
	channelsPerFrame    int
}

// NewDispatcher validates src and selects the conversion kernel. It returns
// one of ErrUnsupportedEncoding, ErrUnsupportedPackedWidth or
// ErrUnsupportedAlignedWidth if src cannot be converted.
func NewDispatcher(src format.Format) (*Dispatcher, error) {
	if src.Kind != format.PCM {
		return nil, fmt.Errorf("%w: kind=%v", ErrUnsupportedEncoding, src.Kind)
	}

	interleavedChannels := int(src.ChannelsPerFrame)
	if src.Flags.Has(format.NonInterleaved) {
		interleavedChannels = 1
	}
	if interleavedChannels == 0 {
		interleavedChannels = 1
	}
	sampleWidth := int(src.BytesPerFrame) / interleavedChannels

	d := &Dispatcher{
		src:                 src,
		interleavedChannels: interleavedChannels,
		sampleWidth:         sampleWidth,
		channelsPerFrame:    int(src.ChannelsPerFrame),
	}

	switch {
	case src.Flags.Has(format.Float):
		switch src.BitsPerChannel {
		case 32:
			d.kernel = floatKernel(4, src.Flags.Has(format.BigEndian))
		case 64:
			d.kernel = floatKernel(8, src.Flags.Has(format.BigEndian))
		default:
			return nil, fmt.Errorf("%w: float bits=%d", ErrUnsupportedPackedWidth, src.BitsPerChannel)
		}

	case src.Flags.Has(format.Packed):
		switch sampleWidth {
		case 1, 2, 3, 4:
			bigEndian := src.Flags.Has(format.BigEndian)
			if src.Flags.Has(format.SignedInteger) {
				d.kernel = alignedSignedKernel(sampleWidth, uint(sampleWidth*8), bigEndian)
			} else {
				d.kernel = packedUnsignedKernel(sampleWidth, bigEndian)
			}
		default:
			return nil, fmt.Errorf("%w: width=%d bytes", ErrUnsupportedPackedWidth, sampleWidth)
		}

	case src.Flags.Has(format.AlignedHigh):
		if err := validateAlignedWidth(sampleWidth, src.BitsPerChannel); err != nil {
			return nil, err
		}
		d.kernel = alignedSignedKernel(sampleWidth, src.BitsPerChannel, src.Flags.Has(format.BigEndian))

	default: // low-aligned
		if err := validateAlignedWidth(sampleWidth, src.BitsPerChannel); err != nil {
			return nil, err
		}
		d.kernel = lowAlignedSignedKernel(sampleWidth, src.BitsPerChannel, src.Flags.Has(format.BigEndian))
	}

	return d, nil
}

func validateAlignedWidth(sampleWidth int, bits uint) error {
	switch sampleWidth {
	case 1, 2, 3, 4:
	default:
		return fmt.Errorf("%w: container=%d bytes", ErrUnsupportedAlignedWidth, sampleWidth)
	}
	switch bits {
	case 8, 16, 24:
	default:
		return fmt.Errorf("%w: bits=%d", ErrUnsupportedAlignedWidth, bits)
	}
	return nil
}

// Dispatch converts n frames from in into out, writing deinterleaved
// float64 channels. It returns n on success. in must have one buffer when
// the source format is interleaved, or channelsPerFrame buffers when
// non-interleaved; out must have channelsPerFrame buffers each able to
// hold n float64 samples (see bufferlist.NewFloat64Output).
func (d *Dispatcher) Dispatch(in, out *bufferlist.BufferList, n int) (int, error) {
	if n == 0 {
		for i := range out.Buffers {
			out.SetByteSize(i, 0)
		}
		return 0, nil
	}

	nonInterleaved := d.src.Flags.Has(format.NonInterleaved)

	for c := 0; c < d.channelsPerFrame; c++ {
		var bufIdx, offset, stride int
		if nonInterleaved {
			bufIdx = c
			offset = 0
			stride = d.sampleWidth
		} else {
			bufIdx = 0
			offset = c * d.sampleWidth
			stride = int(d.src.BytesPerFrame)
		}
		dst := out.Float64Capacity(c)
		if len(dst) < n {
			return 0, fmt.Errorf("convert: output channel %d capacity %d < requested %d frames", c, len(dst), n)
		}
		d.kernel(in.Buffers[bufIdx].Data, offset, stride, n, dst[:n])
		out.SetByteSize(c, n*8)
	}
	return n, nil
}
