// Package orchestrator drives the fetch, analyze, reconcile, enrich, render,
// send pipeline. Each run walks the sequence once; a failed stage ends the
// run, with no retries inside it. The next scheduled run starts clean.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zenwatch-io/zenwatch/internal/analyzer"
	"github.com/zenwatch-io/zenwatch/internal/enrich"
	"github.com/zenwatch-io/zenwatch/internal/notify"
	"github.com/zenwatch-io/zenwatch/internal/reconcile"
	"github.com/zenwatch-io/zenwatch/internal/store"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// topOrgs is how many organizations the large-set summary enumerates.
const topOrgs = 5

// clusteringFlatLabel names the synthetic group when a clustering response
// arrives in the legacy flat shape.
const clusteringFlatLabel = "Similar Tickets"

// Source fetches authoritative tickets.
type Source interface {
	FetchRecent(ctx context.Context, hours int) ([]protocol.Ticket, error)
}

// Analyzer runs the LLM analysis calls.
type Analyzer interface {
	Cluster(ctx context.Context, tickets []protocol.Ticket) (*protocol.AnalysisResponse, error)
	Query(ctx context.Context, tickets []protocol.Ticket, query string, window protocol.TimeWindow) (*protocol.AnalysisResponse, error)
	ExtractTimeWindow(ctx context.Context, query string) (protocol.TimeWindow, error)
}

// Config holds the orchestrator's thresholds and display settings.
type Config struct {
	MinGroupSize         int
	LargeResultThreshold int
	FetchHours           int
	TicketBaseURL        string // e.g. https://yourcompany.zendesk.com/agent/tickets
}

// Orchestrator owns one pipeline instance. Safe for concurrent runs, though
// the scheduler serializes the recurring clustering job.
type Orchestrator struct {
	source   Source
	analyzer Analyzer
	sinks    []notify.Sink
	store    store.Store // nil disables persistence and the snapshot fallback
	cfg      Config
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an orchestrator. store may be nil.
func New(src Source, an Analyzer, sinks []notify.Sink, st store.Store, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:   src,
		analyzer: an,
		sinks:    sinks,
		store:    st,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RunClustering fetches recent tickets, clusters them, and alerts on groups
// meeting the minimum size. The returned record is also persisted.
func (o *Orchestrator) RunClustering(ctx context.Context) (protocol.RunRecord, error) {
	rec := o.begin(protocol.RunClustering, "")
	log := o.logger.With("run", rec.ID, "kind", rec.Kind)
	log.Info("clustering run started")

	rec.State = protocol.RunFetching
	tickets, err := o.fetch(ctx, o.cfg.FetchHours, log)
	if err != nil {
		return o.finish(rec, fmt.Errorf("orchestrator: fetch: %w", err), log)
	}
	rec.TicketCount = len(tickets)
	if len(tickets) == 0 {
		rec.State = protocol.RunSkipped
		rec.Note = "no tickets in lookback window"
		return o.finish(rec, nil, log)
	}

	rec.State = protocol.RunAnalyzing
	resp, err := o.analyzer.Cluster(ctx, tickets)
	if err != nil {
		if errors.Is(err, analyzer.ErrUnparseable) {
			rec.State = protocol.RunSkipped
			rec.Note = "analysis produced no usable groups"
			return o.finish(rec, nil, log)
		}
		return o.finish(rec, fmt.Errorf("orchestrator: analyze: %w", err), log)
	}

	return o.deliver(ctx, rec, resp, tickets, notify.Input{
		Kind:          protocol.RunClustering,
		Summary:       resp.Summary,
		TicketBaseURL: o.cfg.TicketBaseURL,
	}, clusteringFlatLabel, o.cfg.MinGroupSize, log)
}

// RunQuery answers a free-form question about recent tickets. The lookback
// window comes from the query's own time references; groups are not held to
// the clustering size floor.
func (o *Orchestrator) RunQuery(ctx context.Context, query string) (protocol.RunRecord, error) {
	rec := o.begin(protocol.RunQuery, query)
	log := o.logger.With("run", rec.ID, "kind", rec.Kind)
	log.Info("query run started", "query", query)

	window, err := o.analyzer.ExtractTimeWindow(ctx, query)
	if err != nil {
		// Extraction failures fall back to the default window.
		log.Warn("time window extraction failed, using default", "error", err)
	}

	rec.State = protocol.RunFetching
	tickets, err := o.fetch(ctx, window.Hours, log)
	if err != nil {
		return o.finish(rec, fmt.Errorf("orchestrator: fetch: %w", err), log)
	}
	rec.TicketCount = len(tickets)
	if len(tickets) == 0 {
		rec.State = protocol.RunSkipped
		rec.Note = "no tickets in " + window.Description
		return o.finish(rec, nil, log)
	}

	rec.State = protocol.RunAnalyzing
	resp, err := o.analyzer.Query(ctx, tickets, window.CleanedQuery, window)
	if err != nil {
		if errors.Is(err, analyzer.ErrUnparseable) {
			rec.State = protocol.RunSkipped
			rec.Note = "analysis response was not usable"
			return o.finish(rec, nil, log)
		}
		return o.finish(rec, fmt.Errorf("orchestrator: analyze: %w", err), log)
	}

	summary := resp.Data.Answer
	if summary == "" {
		summary = resp.Summary
	}
	return o.deliver(ctx, rec, resp, tickets, notify.Input{
		Kind:          protocol.RunQuery,
		Query:         query,
		Summary:       summary,
		Window:        &window,
		TicketBaseURL: o.cfg.TicketBaseURL,
	}, "Custom Query: "+query, 1, log)
}

// deliver runs the shared back half of both flows: reconcile, enrich,
// render, send, persist.
func (o *Orchestrator) deliver(ctx context.Context, rec protocol.RunRecord, resp *protocol.AnalysisResponse, tickets []protocol.Ticket, in notify.Input, flatLabel string, floor int, log *slog.Logger) (protocol.RunRecord, error) {
	rec.State = protocol.RunReconciling
	groups := resp.NormalizedGroups(flatLabel)
	rec.GroupCount = len(groups)

	result := reconcile.All(groups, floor, o.cfg.LargeResultThreshold, resp.LargeResultSet, log)
	rec.AlertedCount = result.Total
	if len(result.Qualifying) == 0 {
		rec.State = protocol.RunSkipped
		rec.Note = fmt.Sprintf("no groups met the minimum size of %d", floor)
		return o.finish(rec, nil, log)
	}

	rec.State = protocol.RunEnriching
	in.Groups = enrich.Groups(result.Qualifying, tickets, log)
	in.Total = result.Total
	in.Large = result.Large
	if result.Large {
		in.OrgTallies, in.OrgMore = enrich.OrgAggregate(in.Groups, topOrgs)
	}

	rec.State = protocol.RunRendering
	in.GeneratedAt = o.now()
	msg := notify.Render(in)

	delivered := 0
	for _, sink := range o.sinks {
		if err := sink.Send(ctx, msg); err != nil {
			// One sink failing never blocks the others.
			log.Error("notification send failed", "sink", sink.Name(), "error", err)
			continue
		}
		delivered++
	}
	if delivered == 0 && len(o.sinks) > 0 {
		return o.finish(rec, fmt.Errorf("orchestrator: all %d sinks failed", len(o.sinks)), log)
	}

	rec.State = protocol.RunSent
	return o.finish(rec, nil, log)
}

// fetch pulls tickets from the source, refreshing the stored snapshot on
// success. An empty fetch falls back to the snapshot so a flaky source
// doesn't silence a run entirely.
func (o *Orchestrator) fetch(ctx context.Context, hours int, log *slog.Logger) ([]protocol.Ticket, error) {
	tickets, err := o.source.FetchRecent(ctx, hours)
	if err != nil {
		return nil, err
	}

	if len(tickets) > 0 {
		if o.store != nil {
			if err := o.store.SaveSnapshot(tickets); err != nil {
				log.Warn("snapshot save failed", "error", err)
			}
		}
		return tickets, nil
	}

	if o.store != nil {
		snap, savedAt, err := o.store.LoadSnapshot()
		if err != nil {
			log.Warn("snapshot load failed", "error", err)
		} else if len(snap) > 0 {
			log.Warn("empty fetch, using stored snapshot",
				"tickets", len(snap), "saved_at", savedAt)
			return snap, nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) begin(kind protocol.RunKind, query string) protocol.RunRecord {
	return protocol.RunRecord{
		ID:        o.newID(),
		Kind:      kind,
		State:     protocol.RunFetching,
		Query:     query,
		StartedAt: o.now(),
	}
}

// finish stamps the record, persists it, and logs the outcome. runErr marks
// the run failed; persistence problems are logged, never fatal.
func (o *Orchestrator) finish(rec protocol.RunRecord, runErr error, log *slog.Logger) (protocol.RunRecord, error) {
	if runErr != nil {
		rec.State = protocol.RunFailed
		rec.Note = runErr.Error()
	}
	rec.FinishedAt = o.now()

	if o.store != nil {
		if err := o.store.SaveRun(rec); err != nil {
			log.Error("run record save failed", "error", err)
		}
	}

	switch rec.State {
	case protocol.RunSent:
		log.Info("run complete",
			"tickets", rec.TicketCount, "groups", rec.GroupCount, "alerted", rec.AlertedCount)
	case protocol.RunSkipped:
		log.Info("run skipped", "note", rec.Note)
	case protocol.RunFailed:
		log.Error("run failed", "error", runErr)
	}
	return rec, runErr
}
