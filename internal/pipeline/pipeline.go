// Package pipeline runs one ingestion cycle: fetch announcements, filter
// them, and insert the eligible remainder into the store. It is the only
// component that writes bids.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bidwatch/internal/fetch"
	"bidwatch/internal/filter"
	"bidwatch/internal/metrics"
	"bidwatch/internal/model"
	"bidwatch/internal/store"
)

// EventBidIngested is published on Redis for every newly stored bid.
const EventBidIngested = "EVENT_BID_INGESTED"

// Stats summarises one run.
type Stats struct {
	Fetched    int `json:"fetched"`
	Eligible   int `json:"eligible"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// Pipeline wires fetcher, filter rules and store for repeated runs. The
// redis client, seen-cache and metrics registry are optional; a nil value
// disables that concern.
type Pipeline struct {
	fetcher fetch.Fetcher
	rules   filter.Rules
	store   store.BidStore
	cache   *store.SeenCache
	rdb     *redis.Client
	metrics *metrics.Registry
	log     *zap.Logger
}

// New constructs a Pipeline.
func New(
	fetcher fetch.Fetcher,
	rules filter.Rules,
	bids store.BidStore,
	cache *store.SeenCache,
	rdb *redis.Client,
	reg *metrics.Registry,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		fetcher: fetcher,
		rules:   rules,
		store:   bids,
		cache:   cache,
		rdb:     rdb,
		metrics: reg,
		log:     log,
	}
}

// RunOnce executes a single ingestion cycle.
//
// A fetch failure aborts the run before anything is written. A store failure
// aborts the remainder of the batch; the partial stats are still returned.
// A malformed price on one record never aborts anything — the raw string is
// stored instead of the formatted form.
func (p *Pipeline) RunOnce(ctx context.Context) (Stats, error) {
	runID := uuid.NewString()
	log := p.log.With(zap.String("runId", runID))
	start := time.Now()
	log.Info("collection run started")

	var stats Stats

	candidates, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RunFailures.Inc()
		}
		log.Error("fetch failed", zap.Error(err))
		return stats, fmt.Errorf("fetch: %w", err)
	}
	stats.Fetched = len(candidates)

	for _, c := range candidates {
		if !p.rules.Eligible(c.Title, c.PriceRaw) {
			continue
		}
		stats.Eligible++

		if p.cache.Seen(ctx, c.ExternalID) {
			stats.Duplicates++
			continue
		}

		bid := model.Bid{
			ExternalID: c.ExternalID,
			Title:      c.Title,
			Agency:     c.Agency,
			Price:      filter.FormatPrice(c.PriceRaw),
			ClosingAt:  c.ClosingAt,
			DetailLink: c.DetailLink,
			Status:     model.StatusNew,
		}

		inserted, err := p.store.InsertIfAbsent(ctx, bid)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RunFailures.Inc()
			}
			log.Error("store insert failed, aborting run",
				zap.String("externalId", c.ExternalID), zap.Error(err))
			p.record(stats)
			return stats, fmt.Errorf("insert %s: %w", c.ExternalID, err)
		}

		p.cache.Mark(ctx, c.ExternalID)
		if inserted {
			stats.Inserted++
			p.publishIngested(ctx, runID, bid, log)
		} else {
			stats.Duplicates++
		}
	}

	p.record(stats)
	log.Info("collection run complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("eligible", stats.Eligible),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Duration("took", time.Since(start)))
	return stats, nil
}

// publishIngested emits a notification event. Non-fatal.
func (p *Pipeline) publishIngested(ctx context.Context, runID string, bid model.Bid, log *zap.Logger) {
	if p.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":       EventBidIngested,
		"runId":      runID,
		"externalId": bid.ExternalID,
		"title":      bid.Title,
	})
	if err := p.rdb.Publish(ctx, EventBidIngested, event).Err(); err != nil {
		log.Warn("publish event failed", zap.Error(err))
	}
}

func (p *Pipeline) record(stats Stats) {
	if p.metrics == nil {
		return
	}
	p.metrics.RunsTotal.Inc()
	p.metrics.Fetched.Add(float64(stats.Fetched))
	p.metrics.Eligible.Add(float64(stats.Eligible))
	p.metrics.Inserted.Add(float64(stats.Inserted))
	p.metrics.Duplicates.Add(float64(stats.Duplicates))
	p.metrics.LastRunUnix.SetToCurrentTime()
}
