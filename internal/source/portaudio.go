package source

import (
	"encoding/binary"
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

// PortAudioSource reads interleaved CS16 samples from a sound-card-attached
// SDR front end (an RTL-SDR dongle's line-out, an SDR-IQ's USB audio
// interface, etc.) via the cross-platform gordonklaus/portaudio binding.
type PortAudioSource struct {
	stream *pa.Stream
	buf    []int16

	raw []byte
	pos int
}

// OpenPortAudio opens deviceIndex (as reported by portaudio.Devices) as a
// stereo (I/Q) input stream at sampleRate, framesPerBuffer frames at a time.
func OpenPortAudio(deviceIndex int, sampleRate float64, framesPerBuffer int) (*PortAudioSource, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("source: portaudio init: %w", err)
	}

	devices, err := pa.Devices()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("source: listing devices: %w", err)
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		pa.Terminate()
		return nil, fmt.Errorf("source: device index %d out of range (%d devices)", deviceIndex, len(devices))
	}
	dev := devices[deviceIndex]

	buf := make([]int16, framesPerBuffer*2)
	params := pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   dev,
			Channels: 2,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := pa.OpenStream(params, buf)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("source: opening stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("source: starting stream: %w", err)
	}

	return &PortAudioSource{stream: stream, buf: buf}, nil
}

func (s *PortAudioSource) Read(out []byte) (int, error) {
	total := 0
	for total < len(out) {
		if s.pos >= len(s.raw) {
			if err := s.stream.Read(); err != nil {
				return total, fmt.Errorf("source: portaudio read: %w", err)
			}
			if cap(s.raw) < len(s.buf)*2 {
				s.raw = make([]byte, len(s.buf)*2)
			}
			s.raw = s.raw[:len(s.buf)*2]
			for i, v := range s.buf {
				binary.LittleEndian.PutUint16(s.raw[i*2:], uint16(v))
			}
			s.pos = 0
		}
		n := copy(out[total:], s.raw[s.pos:])
		s.pos += n
		total += n
	}
	return total, nil
}

func (s *PortAudioSource) Format() Format { return FormatCS16 }

func (s *PortAudioSource) Close() error {
	err := s.stream.Close()
	pa.Terminate()
	return err
}
