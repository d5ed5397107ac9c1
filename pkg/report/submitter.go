// Package report submits completed flight reports to the flight report service.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"simtrack/pkg/model"
	"simtrack/pkg/request"
	"simtrack/pkg/store"
)

// ErrRejected is returned when the service refused a report. Rejected
// reports are not retried until the next start.
var ErrRejected = errors.New("report rejected")

// Poster sends a JSON body. Implemented by request.Client.
type Poster interface {
	PostJSON(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error)
}

// Banner shows a short message in the GUI.
type Banner interface {
	Banner(msg string, visible time.Duration)
}

// Config configures the Submitter.
type Config struct {
	BaseURL string
	Token   string
	// Enabled is consulted per submission so the setting can change at runtime.
	Enabled func(ctx context.Context) bool
}

// Submitter persists completed flight reports and uploads them through a
// single worker. It implements tracking.Finalizer.
type Submitter struct {
	store  store.ReportStore
	client Poster
	cfg    Config
	banner Banner

	queue   chan string
	mu      sync.Mutex
	queued  map[string]bool
	running bool
}

// NewSubmitter creates a Submitter. banner may be nil.
func NewSubmitter(st store.ReportStore, client Poster, cfg Config, banner Banner) *Submitter {
	return &Submitter{
		store:  st,
		client: client,
		cfg:    cfg,
		banner: banner,
		queue:  make(chan string, 64),
		queued: make(map[string]bool),
	}
}

// FinishUpFlightTracking stores r as pending and queues it for upload.
func (s *Submitter) FinishUpFlightTracking(ctx context.Context, r *model.FlightReport) {
	if r == nil || r.ID == "" {
		slog.Warn("Report: ignoring report without id")
		return
	}
	if err := s.store.SaveReport(ctx, r); err != nil {
		slog.Error("Report: failed to store flight report", "id", r.ID, "error", err)
		return
	}
	slog.Info("Report: flight report stored", "id", r.ID, "flight", r.Flight.Number, "events", len(r.Events))
	s.enqueue(r.ID)
}

// RetryPending queues every report that has not been submitted yet.
func (s *Submitter) RetryPending(ctx context.Context) (int, error) {
	pending, err := s.store.PendingReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending reports: %w", err)
	}
	n := 0
	for _, r := range pending {
		if s.enqueue(r.ID) {
			n++
		}
	}
	if n > 0 {
		slog.Info("Report: retrying pending reports", "count", n)
	}
	return n, nil
}

func (s *Submitter) enqueue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued[id] {
		return false
	}
	select {
	case s.queue <- id:
		s.queued[id] = true
		return true
	default:
		slog.Warn("Report: upload queue full, report stays pending", "id", id)
		return false
	}
}

// Run uploads queued reports until ctx is cancelled.
func (s *Submitter) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.mu.Lock()
			delete(s.queued, id)
			s.mu.Unlock()

			if err := s.Submit(ctx, id); err != nil && ctx.Err() == nil {
				slog.Warn("Report: submission failed", "id", id, "error", err)
			}
		}
	}
}

// Submit uploads one stored report and records the outcome.
func (s *Submitter) Submit(ctx context.Context, id string) error {
	if s.cfg.Enabled != nil && !s.cfg.Enabled(ctx) {
		slog.Info("Report: submission disabled, report kept locally", "id", id)
		return nil
	}
	if s.cfg.BaseURL == "" {
		return fmt.Errorf("report service url not configured")
	}

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if r == nil {
		return fmt.Errorf("report %s not found", id)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	headers := map[string]string{}
	if s.cfg.Token != "" {
		headers["Authorization"] = "Bearer " + s.cfg.Token
	}

	_, err = s.client.PostJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "/")+"/flights", body, headers)
	if err != nil {
		err = classify(err)
		if markErr := s.store.MarkReportFailed(context.WithoutCancel(ctx), id, err); markErr != nil {
			slog.Error("Report: failed to record submission failure", "id", id, "error", markErr)
		}
		if errors.Is(err, ErrRejected) {
			s.showBanner(fmt.Sprintf("Flight report %s was rejected", r.Flight.Number))
		}
		return err
	}

	if err := s.store.MarkReportSubmitted(ctx, id); err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	slog.Info("Report: flight report submitted", "id", id, "flight", r.Flight.Number)
	s.showBanner(fmt.Sprintf("Flight report %s submitted", r.Flight.Number))
	return nil
}

// classify maps client errors to ErrRejected for 4xx responses other than 429.
func classify(err error) error {
	var se *request.StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return err
}

func (s *Submitter) showBanner(msg string) {
	if s.banner != nil {
		s.banner.Banner(msg, 5*time.Second)
	}
}
