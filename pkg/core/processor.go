package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"simtrack/pkg/detector"
	"simtrack/pkg/logging"
	"simtrack/pkg/model"
	"simtrack/pkg/phase"
	"simtrack/pkg/queue"
	"simtrack/pkg/tracking"
)

// Processor is the ingress of the tracking core. Every submitted sample gets
// a sequence number and is paired with its predecessor on the queue of its
// category. One consumer per category runs the analyzers under the
// controller lock.
type Processor struct {
	ctrl     *tracking.Controller
	detector *detector.Detector
	phases   *phase.Classifier
	profile  *phase.ProfileTracker

	seq       atomic.Uint64
	primary   *queue.Differ[model.PrimarySample]
	secondary *queue.Differ[model.SecondarySample]
	landing   *queue.Differ[model.LandingSample]
}

// NewProcessor wires the analyzers to the three sample queues.
func NewProcessor(ctrl *tracking.Controller, det *detector.Detector, cls *phase.Classifier, profile *phase.ProfileTracker) *Processor {
	p := &Processor{
		ctrl:     ctrl,
		detector: det,
		phases:   cls,
		profile:  profile,
	}
	p.primary = queue.New(model.CategoryPrimary.String(), p.analyzePrimary)
	p.secondary = queue.New(model.CategorySecondary.String(), p.analyzeSecondary)
	p.landing = queue.New(model.CategoryLanding.String(), p.analyzeLanding)
	return p
}

// Submit stamps s with the next sequence number and enqueues it.
func (p *Processor) Submit(s model.Sample) {
	seq := p.seq.Add(1)
	switch v := s.(type) {
	case model.PrimarySample:
		v.Seq = seq
		p.primary.Enqueue(v)
	case model.SecondarySample:
		v.Seq = seq
		p.secondary.Enqueue(v)
	case model.LandingSample:
		v.Seq = seq
		p.landing.Enqueue(v)
	default:
		slog.Warn("Processor: unsupported sample", "type", s)
	}
}

// Run starts one consumer per category and blocks until ctx is cancelled
// and every consumer returned.
func (p *Processor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, run := range []func(context.Context){p.primary.Run, p.secondary.Run, p.landing.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	wg.Wait()
}

// Drain analyzes everything queued so far on the calling goroutine.
func (p *Processor) Drain(ctx context.Context) int {
	return p.secondary.Drain(ctx) + p.primary.Drain(ctx) + p.landing.Drain(ctx)
}

// QueueLengths returns the pending pair count per category.
func (p *Processor) QueueLengths() map[string]int {
	return map[string]int{
		p.primary.Name():   p.primary.Len(),
		p.secondary.Name(): p.secondary.Len(),
		p.landing.Name():   p.landing.Len(),
	}
}

// Latest returns the most recently submitted primary sample.
func (p *Processor) Latest() (model.PrimarySample, bool) {
	return p.primary.Current()
}

// ResetSession implements SessionResettable. After a reconnect the first
// sample of each category pairs with itself again.
func (p *Processor) ResetSession(ctx context.Context) {
	p.primary.Reset()
	p.secondary.Reset()
	p.landing.Reset()
	p.profile.Reset()
	slog.Debug("Processor: queues reset")
}

func (p *Processor) analyzePrimary(ctx context.Context, pair model.Pair[model.PrimarySample]) error {
	profile := p.profile.Update(pair.New)
	logging.TraceDefault("Processor: primary pair", "old", pair.Old.Seq, "new", pair.New.Seq,
		"gs", pair.New.GroundSpeed, "rh", pair.New.RadioHeight, "on_ground", pair.New.OnGround, "profile", profile)

	p.ctrl.Update(ctx, func(s *tracking.Session, fx tracking.Effects) {
		// Resume compares against the saved position, which is still LastPrimary.
		fx.ConfirmResume(pair.New)

		cur := pair.New
		secondary := s.LastSecondary
		s.LastPrimary = &cur

		p.detector.DetectPrimary(s, fx, pair)
		p.phases.Classify(s, fx, phase.Input{
			Primary:   pair,
			Secondary: secondary,
			Profile:   profile,
		})
	})
	return nil
}

func (p *Processor) analyzeSecondary(ctx context.Context, pair model.Pair[model.SecondarySample]) error {
	p.ctrl.Update(ctx, func(s *tracking.Session, fx tracking.Effects) {
		p.detector.DetectSecondary(s, fx, pair)
		cur := pair.New
		s.LastSecondary = &cur
	})
	return nil
}

func (p *Processor) analyzeLanding(ctx context.Context, pair model.Pair[model.LandingSample]) error {
	p.ctrl.Update(ctx, func(s *tracking.Session, fx tracking.Effects) {
		p.detector.AnalyzeLanding(s, fx, pair)
	})
	return nil
}
