package source

import "errors"

// ErrDeviceDriverOutOfScope is returned by RTLSDRSource, which exists only
// to give the Source interface boundary a concrete name to satisfy
// against; RTL-SDR/Airspy/UHD device drivers are out of scope here — only
// their interfaces are specified where the core uses them. A real
// implementation would wrap librtlsdr or a USB driver here.
var ErrDeviceDriverOutOfScope = errors.New("source: rtlsdr device driver not implemented (out of scope)")

// RTLSDRSource is an unimplemented Source satisfying the interface shape a
// real RTL-SDR backend would have (deviceIndex, ppmCorrection, gaindDb
// from the config document). Wiring an actual USB driver is out of scope.
type RTLSDRSource struct {
	DeviceIndex   int
	GainDb        float64
	PPMCorrection int
}

func (s *RTLSDRSource) Read([]byte) (int, error) { return 0, ErrDeviceDriverOutOfScope }

func (s *RTLSDRSource) Format() Format { return FormatCS8 }

func (s *RTLSDRSource) Close() error { return nil }
