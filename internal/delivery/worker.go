// Package delivery runs the post-payment pipeline: render the PDF,
// send the confirmation, send the report. It works off an in-process
// queue so the capture handler can answer fast.
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LukaSashic/gruenderai/internal/mail"
	"github.com/LukaSashic/gruenderai/internal/report"
	"github.com/LukaSashic/gruenderai/internal/store"
)

// Job describes one paid order ready for fulfillment.
type Job struct {
	AnalysisID string
	OrderID    string
	Email      string
	Name       string
	Amount     string
	Currency   string
}

// Worker consumes jobs sequentially. Rendering and mail failures are
// logged, never surfaced to the buyer; the report stays downloadable
// through the API regardless.
type Worker struct {
	store      store.Store
	renderer   report.Renderer
	mailer     mail.Mailer
	log        *zap.SugaredLogger
	reportsDir string

	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewWorker(st store.Store, renderer report.Renderer, mailer mail.Mailer, reportsDir string, log *zap.SugaredLogger) *Worker {
	return &Worker{
		store:      st,
		renderer:   renderer,
		mailer:     mailer,
		log:        log,
		reportsDir: reportsDir,
		jobs:       make(chan Job, 64),
	}
}

// Start launches the worker goroutine. Cancel the context to drain and
// stop; Wait blocks until the loop has exited.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-w.jobs:
				if !ok {
					return
				}
				w.process(ctx, job)
			}
		}
	}()
}

// Enqueue hands a job to the worker. A full queue drops the job with a
// log line rather than blocking the payment handler, and a closed
// worker drops it the same way instead of panicking on the channel.
func (w *Worker) Enqueue(job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Errorw("delivery worker closed, job dropped",
			"analysis_id", job.AnalysisID, "order_id", job.OrderID)
		return
	}
	select {
	case w.jobs <- job:
	default:
		w.log.Errorw("delivery queue full, job dropped",
			"analysis_id", job.AnalysisID, "order_id", job.OrderID)
	}
}

// Close stops accepting jobs and waits for in-flight work.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// ReportPath is where the rendered PDF for an analysis lands.
func (w *Worker) ReportPath(analysisID string) string {
	return filepath.Join(w.reportsDir, analysisID+".pdf")
}

func (w *Worker) process(ctx context.Context, job Job) {
	log := w.log.With("analysis_id", job.AnalysisID, "order_id", job.OrderID)

	rec, err := w.store.GetAnalysis(job.AnalysisID)
	if err != nil {
		log.Errorw("delivery: analysis lookup failed", "error", err)
		return
	}

	pdf, err := w.renderPDF(ctx, rec)
	if err != nil {
		log.Errorw("delivery: pdf render failed", "error", err)
	}

	if err := w.mailer.Send(ctx, mail.ConfirmationMessage(job.Email, job.Name, job.OrderID, job.Amount, job.Currency)); err != nil {
		log.Errorw("delivery: confirmation mail failed", "error", err)
	}

	if pdf != nil {
		if err := w.mailer.Send(ctx, mail.ReportMessage(job.Email, job.Name, rec.Result, pdf)); err != nil {
			log.Errorw("delivery: report mail failed", "error", err)
		} else {
			log.Infow("delivery complete", "email", job.Email)
		}
	}
}

func (w *Worker) renderPDF(ctx context.Context, rec store.AnalysisRecord) ([]byte, error) {
	md := report.BuildMarkdown(rec.Result, time.Now())
	pdf, err := w.renderer.Render(ctx, md)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("reports dir: %w", err)
	}
	if err := os.WriteFile(w.ReportPath(rec.ID), pdf, 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return pdf, nil
}
