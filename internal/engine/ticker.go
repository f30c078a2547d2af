package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

// tickEventEvery spaces out SIM_TICK heartbeat events so a 20Hz frame
// loop does not flood the log.
const tickEventEvery = 100

// TickPayload is the data attached to each heartbeat event.
type TickPayload struct {
	TickNumber int64   `json:"tick_number"`
	SimTime    float64 `json:"sim_time"`
	Ships      int     `json:"ships"`
	Stations   int     `json:"stations"`
}

// Ticker drives the engine with wall-clock frames. Each frame's real
// elapsed time is scaled by TimeScale and fed to Step, so a slow frame
// produces one large dt instead of dropping sim time.
type Ticker struct {
	engine     *Engine
	eventLog   *events.EventLog
	logger     *logger.Logger
	interval   time.Duration
	timeScale  float64
	tickNumber int64
	stopChan   chan struct{}
}

// NewTicker creates the frame driver.
func NewTicker(engine *Engine, eventLog *events.EventLog, log *logger.Logger, interval time.Duration, timeScale float64) *Ticker {
	return &Ticker{
		engine:    engine,
		eventLog:  eventLog,
		logger:    log,
		interval:  interval,
		timeScale: timeScale,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the frame loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info(fmt.Sprintf("Engine ticker started (%v per frame, time scale %.2f)", t.interval, t.timeScale))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine ticker stopped manually.")
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds() * t.timeScale
			last = now
			t.tick(dt)
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}

// tick runs one frame and records its latency.
func (t *Ticker) tick(dt float64) {
	start := time.Now()
	t.engine.Step(dt)
	metrics.Get().RecordTick(time.Since(start))

	t.tickNumber++
	if t.tickNumber%tickEventEvery != 0 {
		return
	}

	t.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeSimTick,
		ActorID:   "ENGINE",
		SimTime:   t.engine.SimTime(),
		Payload: TickPayload{
			TickNumber: t.tickNumber,
			SimTime:    t.engine.SimTime(),
			Ships:      len(t.engine.Registry().Ships()),
			Stations:   len(t.engine.Registry().Stations()),
		},
	})
}
