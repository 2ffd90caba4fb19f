package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/metrics"
)

// SweepReport summarizes one cleanup run.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
}

// Sweeper probes every registered token and removes the ones that fail.
type Sweeper struct {
	tokens      TokenRegistry
	dispatcher  Dispatcher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
}

func NewSweeper(tokens TokenRegistry, dispatcher Dispatcher, metrics *metrics.Metrics, logger *slog.Logger, concurrency int) *Sweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Sweeper{
		tokens:      tokens,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Sweep probes all tokens, then deletes every failed one in a single write.
// Any probe error counts as invalid. If ctx ends before the probes finish
// nothing is deleted.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	tokens, err := s.tokens.ListTokens(ctx)
	if err != nil {
		return SweepReport{}, err
	}
	report := SweepReport{Scanned: len(tokens)}

	failed := make([]bool, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tokens {
		i, t := i, t
		g.Go(func() error {
			failed[i] = s.probe(gctx, t) != nil
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("sweep interrupted before delete: %w", err)
	}

	ids := make([]string, 0)
	for i, bad := range failed {
		if bad {
			ids = append(ids, tokens[i].ID)
		}
	}
	if err := s.tokens.DeleteTokens(ctx, ids); err != nil {
		return report, fmt.Errorf("delete invalid tokens: %w", err)
	}
	report.Deleted = len(ids)
	s.metrics.AddDeleted(report.Deleted)
	return report, nil
}

func (s *Sweeper) probe(ctx context.Context, t models.RecipientToken) error {
	var err error
	if t.Token == "" {
		err = fmt.Errorf("token document %s has no token", t.ID)
	} else {
		err = s.dispatcher.Probe(ctx, t.Token)
	}
	s.metrics.IncProbe(err == nil)
	if err != nil {
		s.logger.Debug("token probe failed", slog.String("token_id", t.ID), slog.Any("error", err))
	}
	return err
}
