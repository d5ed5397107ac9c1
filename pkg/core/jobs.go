package core

import (
	"context"
	"sync/atomic"
	"time"

	"simtrack/pkg/geo"
	"simtrack/pkg/model"
)

// Job defines a scheduled task. p is the latest primary sample, nil until
// the first one was read.
type Job interface {
	Name() string
	ShouldFire(p *model.PrimarySample) bool
	Run(ctx context.Context, p *model.PrimarySample)
}

// JobAction is the work a job performs when it fires.
type JobAction func(ctx context.Context, p *model.PrimarySample)

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

func (b *BaseJob) isRunning() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// DistanceJob fires when distance traveled exceeds threshold.
type DistanceJob struct {
	BaseJob
	lastPos   geo.Point
	threshold float64 // meters
	action    JobAction
	firstRun  bool
}

func NewDistanceJob(name string, thresholdMeters float64, action JobAction) *DistanceJob {
	return &DistanceJob{
		BaseJob:   NewBaseJob(name),
		threshold: thresholdMeters,
		action:    action,
		firstRun:  true,
	}
}

func (j *DistanceJob) ShouldFire(p *model.PrimarySample) bool {
	if p == nil || j.isRunning() {
		return false
	}
	if j.firstRun {
		return true
	}
	return geo.Distance(j.lastPos, geo.Point{Lat: p.Latitude, Lon: p.Longitude}) >= j.threshold
}

func (j *DistanceJob) Run(ctx context.Context, p *model.PrimarySample) {
	if p == nil || !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastPos = geo.Point{Lat: p.Latitude, Lon: p.Longitude}
	j.firstRun = false

	j.action(ctx, p)
}

// TimeJob fires when time elapsed exceeds its interval.
type TimeJob struct {
	BaseJob
	lastTime time.Time
	interval func() time.Duration
	action   JobAction
	firstRun bool
}

func NewTimeJob(name string, threshold time.Duration, action JobAction) *TimeJob {
	return NewIntervalJob(name, func() time.Duration { return threshold }, action)
}

// NewIntervalJob creates a TimeJob that reads its interval on every check,
// so settings changed at runtime apply on the next tick.
func NewIntervalJob(name string, interval func() time.Duration, action JobAction) *TimeJob {
	return &TimeJob{
		BaseJob:  NewBaseJob(name),
		interval: interval,
		action:   action,
		firstRun: true,
	}
}

func (j *TimeJob) ShouldFire(_ *model.PrimarySample) bool {
	if j.isRunning() {
		return false
	}
	if j.firstRun {
		return true
	}
	return time.Since(j.lastTime) >= j.interval()
}

func (j *TimeJob) Run(ctx context.Context, p *model.PrimarySample) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastTime = time.Now()
	j.firstRun = false

	j.action(ctx, p)
}
