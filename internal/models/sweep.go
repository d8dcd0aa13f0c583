package models

import "time"

// FrequencyPoint is a single calibrated point of a sweep trace.
// DB is 20*log10(magnitude); magnitude is |real+j*imag|.
type FrequencyPoint struct {
	Frequency float64 `json:"frequency"` // GHz
	Magnitude float64 `json:"magnitude"` // linear
	DB        float64 `json:"db"`
	Phase     float64 `json:"phase"` // degrees
	Real      float64 `json:"real"`
	Imag      float64 `json:"imag"`
}

// SweepSummary holds per-sweep derived statistics. Avg values are RMS over
// the per-point dB series, computed in the power domain.
type SweepSummary struct {
	S11AvgDB float64 `json:"avg_db"`
	S11MaxDB float64 `json:"max_db"`
	S11MinDB float64 `json:"min_db"`
	S21AvgDB float64 `json:"s21_avg_db"`
	S21MaxDB float64 `json:"s21_max_db"`
	S21MinDB float64 `json:"s21_min_db"`
}

// SweepSample is one full device poll. Immutable after creation.
type SweepSample struct {
	Timestamp  time.Time        `json:"timestamp"`
	SweepCount int64            `json:"sweep_count"`
	S11        []FrequencyPoint `json:"s11_data"`
	S21        []FrequencyPoint `json:"s21_data,omitempty"` // empty if port 2 unavailable
	Summary    SweepSummary     `json:"summary"`
}

// SweepConfig is the sweep configuration surface exposed to clients.
type SweepConfig struct {
	Port       string  `json:"port"`
	StartFreq  float64 `json:"start_freq"` // GHz
	StopFreq   float64 `json:"stop_freq"`  // GHz
	Points     int     `json:"points"`
	IntervalMS int     `json:"interval"` // poll interval, milliseconds
}

// ConnectionStatus describes the device link as seen by the orchestrator.
type ConnectionStatus struct {
	Connected     bool    `json:"connected"`
	Port          string  `json:"port"`
	Error         string  `json:"error,omitempty"`
	SignalQuality float64 `json:"signal_quality"`
	LastSweepTime string  `json:"last_sweep_time,omitempty"`
}

// PortInfo is one entry from a serial port scan.
type PortInfo struct {
	Port        string `json:"port"`
	Description string `json:"description"`
}

// HistoryPoint is one rolling-history entry: the summary of a sweep plus its
// capture time. SecondsAgo is filled on snapshot for chart orientation.
type HistoryPoint struct {
	Timestamp  time.Time `json:"-"`
	SecondsAgo float64   `json:"seconds_ago"`
	S11AvgDB   float64   `json:"s11_avg"`
	S11MaxDB   float64   `json:"s11_max"`
	S11MinDB   float64   `json:"s11_min"`
	S21AvgDB   float64   `json:"s21_avg"`
	S21MaxDB   float64   `json:"s21_max"`
	S21MinDB   float64   `json:"s21_min"`
}
