package driver

import "github.com/richinsley/asiobridge/format"

// SampleType is the tagged union over the sample-layout codes a driver
// channel may report. The names mirror the real ASIO sample-type
// enumerators so Describe can be an exhaustive switch.
type SampleType int

const (
	Int16MSB SampleType = iota
	Int16LSB
	Int24MSB
	Int24LSB
	Int32MSB
	Int32LSB
	Float32MSB
	Float32LSB
	Float64MSB
	Float64LSB

	// 32-bit container, N significant bits, value left/right justified.
	Int32MSB16
	Int32MSB18
	Int32MSB20
	Int32MSB24
	Int32LSB16
	Int32LSB18
	Int32LSB20
	Int32LSB24

	DSDInt8LSB1
	DSDInt8MSB1
	DSDInt8NER8
)

// Describe is the total function mapping a recognized SampleType to its
// AudioFormat. An unrecognized code (one outside the constants above)
// returns the zero Format, which callers must detect with Format.IsZero.
func Describe(st SampleType, channels uint, sampleRate float64) format.Format {
	base := format.Format{
		Kind:             format.PCM,
		ChannelsPerFrame: channels,
		SampleRate:       sampleRate,
	}

	switch st {
	case Int16MSB, Int16LSB:
		f := base
		f.Flags = format.SignedInteger | format.NonInterleaved | format.Packed
		f.BitsPerChannel = 16
		f.BytesPerPacket = 2
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if st == Int16MSB {
			f.Flags |= format.BigEndian
		}
		return f

	case Int24MSB, Int24LSB:
		f := base
		f.Flags = format.SignedInteger | format.NonInterleaved | format.Packed
		f.BitsPerChannel = 24
		f.BytesPerPacket = 3
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if st == Int24MSB {
			f.Flags |= format.BigEndian
		}
		return f

	case Int32MSB, Int32LSB:
		f := base
		f.Flags = format.SignedInteger | format.NonInterleaved | format.Packed
		f.BitsPerChannel = 32
		f.BytesPerPacket = 4
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if st == Int32MSB {
			f.Flags |= format.BigEndian
		}
		return f

	case Float32MSB, Float32LSB:
		f := base
		f.Flags = format.Float | format.NonInterleaved | format.Packed
		f.BitsPerChannel = 32
		f.BytesPerPacket = 4
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if st == Float32MSB {
			f.Flags |= format.BigEndian
		}
		return f

	case Float64MSB, Float64LSB:
		f := base
		f.Flags = format.Float | format.NonInterleaved | format.Packed
		f.BitsPerChannel = 64
		f.BytesPerPacket = 8
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if st == Float64MSB {
			f.Flags |= format.BigEndian
		}
		return f

	case Int32MSB16, Int32MSB18, Int32MSB20, Int32MSB24,
		Int32LSB16, Int32LSB18, Int32LSB20, Int32LSB24:
		f := base
		f.Flags = format.SignedInteger | format.NonInterleaved
		f.BitsPerChannel = significantBits(st)
		f.BytesPerPacket = 4
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		if isMSBJustified(st) {
			f.Flags |= format.AlignedHigh
		}
		if isBigEndianContainer(st) {
			f.Flags |= format.BigEndian
		}
		return f

	case DSDInt8LSB1, DSDInt8MSB1:
		f := base
		f.Kind = format.DSD
		f.Flags = format.NonInterleaved
		f.BitsPerChannel = 1
		f.BytesPerPacket = 1
		f.FramesPerPacket = 8
		f.BytesPerFrame = 0 // sentinel: sub-byte framing
		if st == DSDInt8MSB1 {
			f.Flags |= format.BigEndian
		}
		return f

	case DSDInt8NER8:
		f := base
		f.Kind = format.DSD
		f.Flags = format.NonInterleaved
		f.BitsPerChannel = 8
		f.BytesPerPacket = 1
		f.FramesPerPacket = 1
		f.BytesPerFrame = f.BytesPerPacket * f.FramesPerPacket
		return f
	}

	return format.Format{}
}

// significantBits returns the declared bit depth for a 32-bit-container,
// N-significant-bit sample type. These codes are named "Int32MSBNN" and
// "Int32LSBNN", where NN is the bit depth.
func significantBits(st SampleType) uint {
	switch st {
	case Int32MSB16, Int32LSB16:
		return 16
	case Int32MSB18, Int32LSB18:
		return 18
	case Int32MSB20, Int32LSB20:
		return 20
	case Int32MSB24, Int32LSB24:
		return 24
	}
	return 0
}

// isMSBJustified reports whether the significant bits occupy the
// most-significant portion of the 32-bit container (vs. the least).
//
// The naming convention in this enum ties endianness and justification
// together (as the real ASIO SDK does): "MSBxx" variants are high-aligned,
// "LSBxx" variants are low-aligned. Byte order is carried separately by
// isBigEndianContainer.
func isMSBJustified(st SampleType) bool {
	switch st {
	case Int32MSB16, Int32MSB18, Int32MSB20, Int32MSB24:
		return true
	}
	return false
}

func isBigEndianContainer(st SampleType) bool {
	switch st {
	case Int32MSB16, Int32MSB18, Int32MSB20, Int32MSB24:
		return true
	}
	return false
}
