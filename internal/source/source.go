// Package source implements the acquisition-side boundary: SDR device
// drivers themselves (RTL-SDR, Airspy, UHD) are out of scope beyond a thin
// stub, but the Source interface the acquisition thread pulls from lives
// here, plus the concrete sources this repo can exercise end to end (a
// raw-file source for iqDumpFile/sdrTestMode, and a sound-card-attached
// PortAudio front end).
package source

import "github.com/kf7qqd/waveband/internal/dsp"

// Format names the raw sample layout a Source produces, mirroring
// internal/sbuf.Format without importing it (sources predate buffer
// allocation; the acquisition thread is what tags an sbuf.Buffer).
type Format int

const (
	// FormatCS16 is interleaved complex int16 (I, Q, I, Q, ...).
	FormatCS16 Format = iota
	// FormatS16 is real int16 — a single already-demodulated channel, or
	// a mono audio capture device.
	FormatS16
	// FormatCS8 is interleaved complex uint8, the RTL-SDR native format,
	// offset-binary centered on 127.5 and requiring upconversion before
	// use by anything downstream expecting signed Q.15.
	FormatCS8
)

// Source is the boundary the acquisition thread pulls raw samples across.
// Implementations may block (a live device) or return io.EOF (file
// replay); the acquisition thread is the only place allowed to block on
// one.
type Source interface {
	// Read fills buf with raw sample bytes, returning the number of bytes
	// actually read. A short, non-zero read is valid; callers loop until
	// buf is full or an error (including io.EOF) is returned.
	Read(buf []byte) (int, error)
	Format() Format
	Close() error
}

// BytesPerSample reports the byte width of one sample (one I/Q pair for
// the complex formats, one scalar for S16).
func (f Format) BytesPerSample() int {
	switch f {
	case FormatCS16:
		return 4
	case FormatS16:
		return 2
	case FormatCS8:
		return 2
	default:
		return 0
	}
}

// UpconvertCS8ToCS16 widens RTL-SDR's native offset-binary uint8 I/Q pairs
// into signed Q.15 dsp.Sample values. raw must hold 2*len(out) bytes.
func UpconvertCS8ToCS16(raw []byte, out []dsp.Sample) {
	for i := range out {
		out[i] = dsp.Sample{
			Re: int16(int32(raw[2*i])-128) << 8,
			Im: int16(int32(raw[2*i+1])-128) << 8,
		}
	}
}
