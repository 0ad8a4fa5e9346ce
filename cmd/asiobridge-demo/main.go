// Command asiobridge-demo wires a tone-generating producer to the
// PortAudio output driver and drives it for a fixed duration, exercising
// the full Open/SetupForDecoder/Start/Stop lifecycle end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/richinsley/asiobridge/driverimpl/paoutput"
	"github.com/richinsley/asiobridge/format"
	"github.com/richinsley/asiobridge/output"
	"github.com/richinsley/asiobridge/ringbuffer"
)

// toneDecoder is a minimal output.Decoder reporting a fixed PCM format.
type toneDecoder struct{ f format.Format }

func (t toneDecoder) Format() format.Format { return t.f }

func main() {
	deviceHint := flag.String("device", "", "substring match against an output device name (default device if empty)")
	sampleRate := flag.Float64("samplerate", 48000, "output sample rate in Hz")
	channels := flag.Int("channels", 2, "number of output channels")
	bufferSize := flag.Int("buffer", 512, "frames per period")
	freq := flag.Float64("freq", 440.0, "test tone frequency in Hz")
	duration := flag.Duration("duration", 5*time.Second, "how long to play the test tone")
	help := flag.Bool("help", false, "show help message")
	flag.Parse()

	if *help {
		fmt.Println("asiobridge-demo: play a test tone through the PortAudio output backend")
		flag.PrintDefaults()
		return
	}

	drv := paoutput.New(*deviceHint, *channels, *sampleRate, *bufferSize)
	ring := ringbuffer.New(*channels, 4**bufferSize, *sampleRate)

	ctrl := output.New(drv, ring, output.DefaultOptions())

	if err := ctrl.Open(); err != nil {
		log.Fatalf("asiobridge-demo: Open: %v", err)
	}
	defer ctrl.Close()

	dec := toneDecoder{f: format.Format{
		Kind:             format.PCM,
		Flags:            format.Float | format.NonInterleaved | format.Packed,
		BitsPerChannel:   64,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		SampleRate:       *sampleRate,
		ChannelsPerFrame: uint(*channels),
	}}
	ringFormat, err := ctrl.SetupForDecoder(dec)
	if err != nil {
		log.Fatalf("asiobridge-demo: SetupForDecoder: %v", err)
	}
	log.Printf("negotiated ring format: %+v", ringFormat)

	stop := make(chan struct{})
	go generateTone(ring, *channels, *sampleRate, *freq, *bufferSize, stop)

	if err := ctrl.Start(); err != nil {
		log.Fatalf("asiobridge-demo: Start: %v", err)
	}

	time.Sleep(*duration)

	close(stop)
	ctrl.RequestStop()
	time.Sleep(400 * time.Millisecond) // let one housekeeping drain cycle run
	log.Println("asiobridge-demo: done")
}

// generateTone fills ring with a sine wave until stop is closed, at roughly
// the period implied by bufferSize/sampleRate.
func generateTone(ring *ringbuffer.RingBuffer, channels int, sampleRate, freq float64, bufferSize int, stop <-chan struct{}) {
	phase := 0.0
	step := 2 * math.Pi * freq / sampleRate
	ticker := time.NewTicker(time.Duration(float64(bufferSize) / sampleRate * float64(time.Second)))
	defer ticker.Stop()

	chans := make([][]float64, channels)
	for c := range chans {
		chans[c] = make([]float64, bufferSize)
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for i := 0; i < bufferSize; i++ {
				v := math.Sin(phase) * 0.2
				phase += step
				if phase > 2*math.Pi {
					phase -= 2 * math.Pi
				}
				for c := 0; c < channels; c++ {
					chans[c][i] = v
				}
			}
			ring.WriteFrames(chans, bufferSize)
		}
	}
}
