// Package config loads the nested key/value configuration document via
// gopkg.in/yaml.v3 (or encoding/json, same struct tags, chosen by file
// extension) into the typed struct below.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNrSampBufs is the frame allocator capacity used when nrSampBufs
// is omitted or zero.
const DefaultNrSampBufs = 64

// DefaultDCBlockerPole is the DC blocker's pole when enabled but
// dcBlockerPole is omitted.
const DefaultDCBlockerPole = 0.9999

// RationalResampler configures internal/dsp's PolyphaseFIR resampler.
type RationalResampler struct {
	Decimate    int       `yaml:"decimate" json:"decimate"`
	Interpolate int       `yaml:"interpolate" json:"interpolate"`
	LPFCoeffs   []float64 `yaml:"lpfCoeffs" json:"lpfCoeffs"`
}

// Channel configures one channel worker.
type Channel struct {
	OutFifo         string  `yaml:"outFifo" json:"outFifo"`
	ChanCenterFreq  int64   `yaml:"chanCenterFreq" json:"chanCenterFreq"`
	DBGain          float64 `yaml:"dBGain" json:"dBGain"`
	SignalDebugFile string  `yaml:"signalDebugFile" json:"signalDebugFile"`

	// Decoder optionally attaches a protocol decoder to this channel's
	// demodulated PCM, in addition to the FIFO write: the decoder runs
	// after squelch, distinct from the FIFO/JSON sink which is an external
	// collaborator. One of "", "flex", "pocsag", "ais".
	Decoder string `yaml:"decoder" json:"decoder"`

	// CsqThresholdDBFS gates this channel's FMDemod and squelch indicator;
	// zero disables squelch entirely (the channel is always considered
	// open).
	CsqThresholdDBFS float64 `yaml:"csqThresholdDBFS" json:"csqThresholdDBFS"`

	// SquelchHangSamples, when nonzero, holds the squelch gate open for
	// this many samples past the point the signal last cleared threshold.
	SquelchHangSamples int `yaml:"squelchHangSamples" json:"squelchHangSamples"`

	// Costas, if non-nil, derotates this channel's complex stream with a
	// Costas carrier-tracking loop before FM demodulation. Omit for the
	// default free-running FM path.
	Costas *CostasLoop `yaml:"costas" json:"costas"`
}

// CostasLoop configures internal/dsp.CostasDemod's loop-filter gains and
// phase-error clamp.
type CostasLoop struct {
	Alpha  float64 `yaml:"alpha" json:"alpha"`
	Beta   float64 `yaml:"beta" json:"beta"`
	ErrMax float64 `yaml:"errMax" json:"errMax"`
}

// Config is the root configuration document. Field names follow the
// on-disk key names verbatim, including the "gaindDb" spelling, to keep
// the document contract exact.
type Config struct {
	SampleRateHz      int64             `yaml:"sampleRateHz" json:"sampleRateHz"`
	CenterFreqHz      int64             `yaml:"centerFreqHz" json:"centerFreqHz"`
	NrSampBufs        int               `yaml:"nrSampBufs" json:"nrSampBufs"`
	DecimationFactor  int               `yaml:"decimationFactor" json:"decimationFactor"`
	LPFTaps           []float64         `yaml:"lpfTaps" json:"lpfTaps"`
	RationalResampler RationalResampler `yaml:"rationalResampler" json:"rationalResampler"`
	EnableDCBlocker   bool              `yaml:"enableDCBlocker" json:"enableDCBlocker"`
	DCBlockerPole     float64           `yaml:"dcBlockerPole" json:"dcBlockerPole"`
	Channels          []Channel         `yaml:"channels" json:"channels"`

	DeviceIndex   int     `yaml:"deviceIndex" json:"deviceIndex"`
	GainDb        float64 `yaml:"gaindDb" json:"gaindDb"`
	PPMCorrection float64 `yaml:"ppmCorrection" json:"ppmCorrection"`
	IQDumpFile    string  `yaml:"iqDumpFile" json:"iqDumpFile"`
	SDRTestMode   bool    `yaml:"sdrTestMode" json:"sdrTestMode"`
}

// Load reads and parses the document at path, choosing YAML or JSON by
// extension (.json is JSON, everything else is tried as YAML — YAML is a
// JSON superset so a .yaml/.yml/extensionless document parses either way).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config: parsing %s as JSON: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config: parsing %s as YAML: %w", path, err)
		}
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.NrSampBufs == 0 {
		c.NrSampBufs = DefaultNrSampBufs
	}
	if c.EnableDCBlocker && c.DCBlockerPole == 0 {
		c.DCBlockerPole = DefaultDCBlockerPole
	}
}

// Validate checks the invariants the rest of this package relies on: a
// nonzero sample rate, a decimation factor of at least 1, and at least one
// channel with an output sink named. Configuration errors map to exit
// code 1.
func (c *Config) Validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("config: sampleRateHz must be positive, got %d", c.SampleRateHz)
	}
	if c.DecimationFactor < 1 {
		return fmt.Errorf("config: decimationFactor must be >= 1, got %d", c.DecimationFactor)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("config: at least one channel is required")
	}
	for i, ch := range c.Channels {
		if ch.OutFifo == "" {
			return fmt.Errorf("config: channels[%d].outFifo is required", i)
		}
	}
	return nil
}
