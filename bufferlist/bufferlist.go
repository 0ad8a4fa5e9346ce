// Package bufferlist provides the non-owning scatter/gather channel views
// used to hand audio data across the driver/producer/converter boundary
// without copying ownership.
package bufferlist

import "unsafe"

// Buffer is a single non-owning channel view: a byte pointer plus the
// number of valid bytes and the channel count it represents (always 1 for
// the deinterleaved buffers the converter and RT callback deal with).
type Buffer struct {
	Data         []byte
	ByteSize     int
	ChannelCount int
}

// BufferList is an array of per-channel Buffer views. Memory pointed to by
// each Buffer is owned elsewhere (the driver's double buffers or the
// producer's ring buffer) — BufferList's methods never allocate or free the
// underlying storage, only rebind which slice each entry points at. The one
// exception is NewFloat64Output, which allocates fresh backing storage for a
// converter output list.
type BufferList struct {
	Buffers []Buffer
}

// NewBufferList allocates a BufferList with n empty channel entries. Only
// the slice of Buffer headers is allocated; no sample storage is touched.
func NewBufferList(n int) *BufferList {
	return &BufferList{Buffers: make([]Buffer, n)}
}

// Rebind points buffer index i at data without copying it.
func (bl *BufferList) Rebind(i int, data []byte) {
	bl.Buffers[i].Data = data
	bl.Buffers[i].ByteSize = len(data)
	bl.Buffers[i].ChannelCount = 1
}

// Float64Channel returns the valid (already-produced) portion of channel i
// reinterpreted as a []float64 view, sized by ByteSize. Use this to read
// what a prior Dispatch/conversion call wrote.
func (bl *BufferList) Float64Channel(i int) []float64 {
	b := bl.Buffers[i]
	if len(b.Data) == 0 {
		return nil
	}
	n := b.ByteSize / 8
	return unsafe.Slice((*float64)(unsafe.Pointer(&b.Data[0])), n)
}

// Float64Capacity returns the full backing capacity of channel i
// reinterpreted as a []float64 view, regardless of ByteSize. Writers (the
// converter dispatcher) use this to obtain a destination slice before
// calling SetByteSize to record how much of it is now valid.
func (bl *BufferList) Float64Capacity(i int) []float64 {
	b := bl.Buffers[i]
	if len(b.Data) == 0 {
		return nil
	}
	n := len(b.Data) / 8
	return unsafe.Slice((*float64)(unsafe.Pointer(&b.Data[0])), n)
}

// SetByteSize sets the valid byte size of channel i without touching its
// data pointer, used by the converter and RT callback to report how many
// bytes were actually produced.
func (bl *BufferList) SetByteSize(i, n int) {
	bl.Buffers[i].ByteSize = n
}

// Len returns the number of channel entries.
func (bl *BufferList) Len() int { return len(bl.Buffers) }

// NewFloat64Output allocates a BufferList of n channels, each backed by a
// freshly allocated, 8-byte-aligned byte slice capable of holding
// frameCapacity float64 samples. This is the standard output BufferList
// shape the converter dispatcher writes into.
func NewFloat64Output(n, frameCapacity int) *BufferList {
	bl := NewBufferList(n)
	for i := 0; i < n; i++ {
		if frameCapacity == 0 {
			bl.Buffers[i] = Buffer{ChannelCount: 1}
			continue
		}
		backing := make([]float64, frameCapacity)
		data := unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), frameCapacity*8)
		bl.Buffers[i] = Buffer{Data: data, ByteSize: 0, ChannelCount: 1}
	}
	return bl
}

// ScratchView is the controller-owned view rebound onto one of the
// driver's output double buffers on each switch. It is a thin
// specialization of BufferList sized to outputCount channels.
type ScratchView struct {
	*BufferList
}

// NewScratchView allocates a ScratchView with outputCount unbound channel
// entries; Rebind must be called once per channel per switch before use.
func NewScratchView(outputCount int) *ScratchView {
	return &ScratchView{BufferList: NewBufferList(outputCount)}
}
