package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/eminus-watch/internal/logger"
)

// SyncState represents the current state of the daemon's job.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the outcome of the most recent run.
type SyncStatus struct {
	State    SyncState
	LastRun  time.Time
	LastSync time.Time
	Runs     int
	Error    error
	Summary  *Summary
}

// Job is what the poller runs on every tick.
type Job interface {
	Run(ctx context.Context, opts RunOptions) (*Summary, error)
}

// scheduleParser accepts standard five-field cron expressions and
// descriptors such as @every 5m.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Poller runs a job on a cron schedule. Ticks that arrive while a run is
// still in progress are skipped.
type Poller struct {
	job      Job
	schedule cron.Schedule
	spec     string
	loc      *time.Location

	mu     gosync.Mutex
	status SyncStatus
}

// NewPoller validates spec and returns a poller for job. Schedules are
// evaluated in loc.
func NewPoller(job Job, spec string, loc *time.Location) (*Poller, error) {
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Poller{job: job, schedule: sched, spec: spec, loc: loc}, nil
}

// Next returns the first activation after t.
func (p *Poller) Next(t time.Time) time.Time {
	return p.schedule.Next(t.In(p.loc))
}

// NextActivation parses spec and returns its first activation after t,
// evaluated in loc.
func NextActivation(spec string, loc *time.Location, t time.Time) (time.Time, error) {
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return sched.Next(t.In(loc)), nil
}

// Start runs the job once immediately, then on every tick until ctx is
// canceled. It waits for an in-flight run to finish before returning.
func (p *Poller) Start(ctx context.Context) error {
	log := logger.FromContext(ctx)

	c := cron.New(
		cron.WithLocation(p.loc),
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger{log: log}),
		cron.WithChain(
			cron.Recover(cronLogger{log: log}),
			cron.SkipIfStillRunning(cronLogger{log: log}),
		),
	)
	c.Schedule(p.schedule, cron.FuncJob(func() { p.runOnce(ctx) }))

	log.Info("Daemon started", "schedule", p.spec, "next", p.Next(time.Now()))
	p.runOnce(ctx)

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	log.Info("Daemon stopped")
	return nil
}

// Status returns a copy of the latest status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	p.setStatus(func(s *SyncStatus) {
		s.State = SyncRunning
		s.LastRun = time.Now()
	})

	summary, err := p.job.Run(ctx, RunOptions{})

	p.setStatus(func(s *SyncStatus) {
		s.Runs++
		s.Summary = summary
		s.Error = err
		if err != nil {
			s.State = SyncError
			return
		}
		s.State = SyncIdle
		s.LastSync = time.Now()
	})

	if err != nil {
		logger.FromContext(ctx).Error("Run failed", "err", err)
	}
}

func (p *Poller) setStatus(update func(*SyncStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(&p.status)
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
