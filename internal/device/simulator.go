package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"drc_online/internal/analysis"
	"drc_online/internal/models"
)

// ----------- Synthetic signal constants -----------
const (
	baselineS11DB = -5.0  // reflective baseline, no sample on the fixture
	sampleS11DB   = -13.0 // absorbing level while a sample sits on the fixture
	baselineS21DB = -8.0
	sampleS21DB   = -32.0
	noiseDB       = 0.6 // peak dB jitter per point

	// the synthetic fixture alternates empty/sample-present phases so that
	// period detection has real structure to find
	emptyPhaseSweeps  = 8
	samplePhaseSweeps = 12
)

// Synthetic is a loopback VNA used when no hardware is attached. It
// synthesizes two-port sweeps with a sample-presence cycle and honors the
// Device contract, including transient faults via failEvery.
type Synthetic struct {
	mu        sync.Mutex
	cfg       models.SweepConfig
	connected bool
	sweeps    int64
	rng       *rand.Rand

	// failEvery > 0 makes every Nth poll return a transient error
	failEvery int64
}

// NewSynthetic returns a disconnected synthetic device.
func NewSynthetic() *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSyntheticWithFaults returns a synthetic device that injects a transient
// poll failure every failEvery sweeps.
func NewSyntheticWithFaults(failEvery int64) *Synthetic {
	s := NewSynthetic()
	s.failEvery = failEvery
	return s
}

func (s *Synthetic) Connect(_ context.Context, cfg models.SweepConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Points <= 1 {
		return FatalError("invalid sweep config: points must exceed 1")
	}
	if cfg.StopFreq <= cfg.StartFreq {
		return FatalError("invalid sweep config: stop frequency must exceed start")
	}
	s.cfg = cfg
	s.connected = true
	s.sweeps = 0
	return nil
}

func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *Synthetic) ListPorts() []models.PortInfo {
	return []models.PortInfo{
		{Port: "COM4", Description: "NanoVNA-H4 (synthetic)"},
		{Port: "/dev/ttyACM0", Description: "NanoVNA-H4 (synthetic)"},
	}
}

// PollSweep synthesizes one full sweep. The S11/S21 levels follow the
// empty/sample presence cycle; per-point values carry small jitter and a
// mild frequency-dependent slope.
func (s *Synthetic) PollSweep(_ context.Context) (models.SweepSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return models.SweepSample{}, FatalError("device not connected")
	}
	s.sweeps++
	if s.failEvery > 0 && s.sweeps%s.failEvery == 0 {
		return models.SweepSample{}, Transient("synthetic read timeout on sweep %d", s.sweeps)
	}

	samplePresent := s.sweeps%(emptyPhaseSweeps+samplePhaseSweeps) >= emptyPhaseSweeps

	s11Level, s21Level := baselineS11DB, baselineS21DB
	if samplePresent {
		s11Level, s21Level = sampleS11DB, sampleS21DB
	}

	n := s.cfg.Points
	step := (s.cfg.StopFreq - s.cfg.StartFreq) / float64(n-1)

	s11 := make([]models.FrequencyPoint, n)
	s21 := make([]models.FrequencyPoint, n)
	for i := 0; i < n; i++ {
		freq := s.cfg.StartFreq + float64(i)*step
		tilt := 0.5 * math.Sin(float64(i)/float64(n)*math.Pi)
		s11[i] = s.point(freq, s11Level+tilt)
		s21[i] = s.point(freq, s21Level-tilt)
	}

	var s11db, s21db []float64
	for i := 0; i < n; i++ {
		s11db = append(s11db, s11[i].DB)
		s21db = append(s21db, s21[i].DB)
	}
	s11min, s11max := seriesMinMax(s11db)
	s21min, s21max := seriesMinMax(s21db)

	return models.SweepSample{
		Timestamp:  time.Now().UTC(),
		SweepCount: s.sweeps,
		S11:        s11,
		S21:        s21,
		Summary: models.SweepSummary{
			S11AvgDB: analysis.RMSdb(s11db),
			S11MaxDB: s11max,
			S11MinDB: s11min,
			S21AvgDB: analysis.RMSdb(s21db),
			S21MaxDB: s21max,
			S21MinDB: s21min,
		},
	}, nil
}

// point builds a FrequencyPoint at the given dB level with jitter, deriving
// magnitude, real and imag so the FrequencyPoint invariants hold.
func (s *Synthetic) point(freqGHz, levelDB float64) models.FrequencyPoint {
	db := levelDB + (s.rng.Float64()*2-1)*noiseDB
	magnitude := math.Pow(10, db/20)
	phase := (s.rng.Float64()*2 - 1) * 180
	rad := phase * math.Pi / 180
	return models.FrequencyPoint{
		Frequency: freqGHz,
		Magnitude: magnitude,
		DB:        db,
		Phase:     phase,
		Real:      magnitude * math.Cos(rad),
		Imag:      magnitude * math.Sin(rad),
	}
}

func seriesMinMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
