package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"drc_online/internal/analysis"
	"drc_online/internal/device"
	"drc_online/internal/logger"
	"drc_online/internal/models"
)

// Orchestrator state errors.
var (
	ErrAlreadyRunning = errors.New("sweep already running")
	ErrNotRunning     = errors.New("sweep not running")
	ErrSweepActive    = errors.New("cannot update config while sweep is running")
)

const (
	DefaultMaxFailures = 5
	defaultIntervalMS  = 1000
)

// SweepData is the per-tick payload pushed to clients: the fresh sample plus
// the rolling history for chart redraw.
type SweepData struct {
	Timestamp     string                  `json:"timestamp"`
	SweepCount    int64                   `json:"sweep_count"`
	S11           []models.FrequencyPoint `json:"s11_data"`
	S21           []models.FrequencyPoint `json:"s21_data,omitempty"`
	Summary       models.SweepSummary     `json:"summary"`
	Historical    []models.HistoryPoint   `json:"historical"`
	SignalQuality float64                 `json:"signal_quality"`
}

// SweepService owns the poll loop: Idle/Running state machine, device
// lifecycle, rolling history and event publication. One sweep session at a
// time.
type SweepService struct {
	dev     device.Device
	bus     *Bus
	history *analysis.History
	log     *logger.Logger

	maxFailures int

	mu         sync.Mutex
	cfg        models.SweepConfig
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	sweepCount int64
	status     models.ConnectionStatus
	lastSample *models.SweepSample
}

func NewSweepService(dev device.Device, bus *Bus, history *analysis.History, log *logger.Logger, cfg models.SweepConfig, maxFailures int) *SweepService {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if cfg.IntervalMS <= 0 {
		cfg.IntervalMS = defaultIntervalMS
	}
	return &SweepService{
		dev:         dev,
		bus:         bus,
		history:     history,
		log:         log,
		maxFailures: maxFailures,
		cfg:         cfg,
	}
}

// Start connects the device and launches the poll loop. Fails without a
// state change when the device cannot connect.
func (s *SweepService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	if err := s.dev.Connect(ctx, s.cfg); err != nil {
		s.status = models.ConnectionStatus{Connected: false, Port: s.cfg.Port, Error: err.Error()}
		s.publishStatusLocked()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.status = models.ConnectionStatus{Connected: true, Port: s.cfg.Port}
	s.publishStatusLocked()

	interval := time.Duration(s.cfg.IntervalMS) * time.Millisecond
	go s.loop(loopCtx, interval, s.done)

	s.log.Infow("sweep_started", "port", s.cfg.Port, "interval_ms", s.cfg.IntervalMS)
	return nil
}

// Stop ends the sweep session and waits for the loop to exit.
func (s *SweepService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.log.Infow("sweep_stopped")
	return nil
}

func (s *SweepService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SweepService) Config() models.SweepConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig replaces the sweep parameters. Rejected while a sweep is
// running; stop first.
func (s *SweepService) UpdateConfig(cfg models.SweepConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSweepActive
	}
	if cfg.IntervalMS <= 0 {
		cfg.IntervalMS = defaultIntervalMS
	}
	s.cfg = cfg
	return nil
}

func (s *SweepService) ScanPorts() []models.PortInfo {
	return s.dev.ListPorts()
}

func (s *SweepService) Status() models.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastSample returns a copy of the most recent good sweep, or nil before the
// first one.
func (s *SweepService) LastSample() *models.SweepSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSample == nil {
		return nil
	}
	cp := *s.lastSample
	return &cp
}

func (s *SweepService) History() *analysis.History {
	return s.history
}

// loop is the single writer of history and status. It exits on ctx cancel,
// fatal device error, or maxFailures consecutive transient failures.
func (s *SweepService) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer s.shutdown()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := s.dev.PollSweep(ctx)
			if err != nil {
				failures++
				fatal := isFatal(err) || failures >= s.maxFailures
				s.log.Warnw("sweep_poll_failed", "err", err, "consecutive", failures, "fatal", fatal)
				s.bus.Publish(EventError, map[string]any{"message": err.Error(), "fatal": fatal})
				if fatal {
					return
				}
				continue
			}
			failures = 0
			s.handleSample(sample)
		}
	}
}

func (s *SweepService) handleSample(sample models.SweepSample) {
	s.history.Push(sample.Timestamp, sample.Summary)
	quality := SignalQuality(sample, s.cfg.Points)

	s.mu.Lock()
	s.sweepCount++
	sample.SweepCount = s.sweepCount
	s.lastSample = &sample
	s.status.SignalQuality = quality
	s.status.LastSweepTime = sample.Timestamp.Format(time.RFC3339)
	s.mu.Unlock()

	s.bus.Publish(EventSweepData, SweepData{
		Timestamp:     sample.Timestamp.Format(time.RFC3339),
		SweepCount:    sample.SweepCount,
		S11:           sample.S11,
		S21:           sample.S21,
		Summary:       sample.Summary,
		Historical:    s.history.Snapshot(time.Now()),
		SignalQuality: quality,
	})
}

// shutdown transitions to Idle after the loop exits, whatever the reason.
func (s *SweepService) shutdown() {
	_ = s.dev.Close()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.status.Connected = false
	s.publishStatusLocked()
	s.mu.Unlock()
}

func (s *SweepService) publishStatusLocked() {
	s.bus.Publish(EventStatus, s.status)
}

func isFatal(err error) bool {
	var de *device.Error
	return errors.As(err, &de) && de.Fatal
}

// SignalQuality scores a sweep 0-100: trace completeness (40), S11 return
// loss strength (40), S21 availability (20).
func SignalQuality(sample models.SweepSample, expectedPoints int) float64 {
	if expectedPoints <= 0 {
		expectedPoints = len(sample.S11)
	}
	score := 0.0
	if expectedPoints > 0 {
		completeness := float64(len(sample.S11)) / float64(expectedPoints)
		if completeness > 1 {
			completeness = 1
		}
		score += 40 * completeness
	}

	// -40 dB or deeper scores full marks, -5 dB or shallower scores zero.
	rms := sample.Summary.S11AvgDB
	switch {
	case rms <= -40:
		score += 40
	case rms < -5:
		score += 40 * (-5 - rms) / 35
	}

	if len(sample.S21) > 0 {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}
