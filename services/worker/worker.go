package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sjsage522/steamsales/internal/crawler"
	"sjsage522/steamsales/logger"
	apperrors "sjsage522/steamsales/pkg/errors"
	"sjsage522/steamsales/services/publisher"
)

// DefaultBatchSize is the number of pages between two reports
const DefaultBatchSize = 5

// ErrNoData is returned when the very first page cannot be fetched
var ErrNoData = errors.New("could not fetch data")

// Extractor turns page markup into items
type Extractor interface {
	ExtractItems(ctx context.Context, markup string) []crawler.DiscountedItem
}

// BatchResult is handed to the reporter at every batch boundary
type BatchResult struct {
	Number    int
	FirstPage int
	LastPage  int
	MaxPages  int
	NewItems  []crawler.DiscountedItem
	AllItems  []crawler.DiscountedItem
}

// BatchReporter receives incremental results
type BatchReporter interface {
	ReportBatch(batch BatchResult)
}

// Worker drives the sequential fetch/extract loop and owns the run's result set.
// A Worker is not safe for concurrent use.
type Worker struct {
	fetcher      crawler.PageFetcher
	extractor    Extractor
	reporter     BatchReporter
	publisher    publisher.Publisher
	requestDelay time.Duration
	batchPause   time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	log          *logger.Logger
}

// NewWorker creates a new worker; reporter and pub may be nil
func NewWorker(
	fetcher crawler.PageFetcher,
	extractor Extractor,
	reporter BatchReporter,
	pub publisher.Publisher,
	requestDelay time.Duration,
	batchPause time.Duration,
) *Worker {
	return &Worker{
		fetcher:      fetcher,
		extractor:    extractor,
		reporter:     reporter,
		publisher:    pub,
		requestDelay: requestDelay,
		batchPause:   batchPause,
		sleep:        sleepContext,
		log:          logger.ForWorker(),
	}
}

// Run fetches pages 1..maxPages in order, stopping early on a fetch failure or an empty page,
// and returns the items deduplicated by id with the first occurrence kept.
func (w *Worker) Run(ctx context.Context, maxPages, batchSize int) ([]crawler.DiscountedItem, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var all []crawler.DiscountedItem
	var unique []crawler.DiscountedItem
	reported := make(map[string]struct{})

	page := 1
	batch := 0
	done := false

	for page <= maxPages && !done {
		batch++
		firstPage := page
		lastPage := min(firstPage+batchSize-1, maxPages)

		w.log.Info().
			Int("batch", batch).
			Msgf("Searching pages %d to %d...", firstPage, lastPage)

		for i := 0; i < batchSize && page <= maxPages; i++ {
			markup, err := w.fetcher.FetchSearchPage(ctx, page)
			if err != nil {
				if page == 1 {
					return nil, fmt.Errorf("%w: %w", ErrNoData, err)
				}
				w.log.Warn().Err(err).Int("page", page).Msg("Failed to fetch page, stopping")
				done = true
				break
			}

			items := w.extractor.ExtractItems(ctx, markup)
			if len(items) == 0 {
				w.log.Info().Int("page", page).Msg("No more games found, stopping")
				done = true
				break
			}
			all = append(all, items...)

			w.log.Debug().
				Int("page", page).
				Int("page_items", len(items)).
				Int("total_items", len(all)).
				Msg("Processed page")

			// no delay after the last page of a batch
			if i < batchSize-1 && page < maxPages {
				if err := w.sleep(ctx, w.requestDelay); err != nil {
					return Dedupe(all), err
				}
			}
			page++
		}

		if done {
			lastPage = page
		}

		unique = Dedupe(all)
		var newItems []crawler.DiscountedItem
		for _, item := range unique {
			if _, seen := reported[item.ID]; seen {
				continue
			}
			reported[item.ID] = struct{}{}
			newItems = append(newItems, item)
		}

		w.log.Info().
			Int("batch", batch).
			Int("unique_total", len(unique)).
			Int("new_in_batch", len(newItems)).
			Msg("Batch complete")

		if w.reporter != nil {
			w.reporter.ReportBatch(BatchResult{
				Number:    batch,
				FirstPage: firstPage,
				LastPage:  lastPage,
				MaxPages:  maxPages,
				NewItems:  newItems,
				AllItems:  unique,
			})
		}
		w.publish(ctx, newItems)

		if !done && page <= maxPages {
			w.log.Info().Dur("pause", w.batchPause).Msg("Pausing before next batch")
			if err := w.sleep(ctx, w.batchPause); err != nil {
				return unique, err
			}
		}
	}

	return unique, ctx.Err()
}

// publish sends newly discovered items to the publisher, if any
func (w *Worker) publish(ctx context.Context, items []crawler.DiscountedItem) {
	if w.publisher == nil || len(items) == 0 {
		return
	}

	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			w.log.Error().Err(err).Str("id", item.ID).Msg("Failed to marshal item")
			continue
		}
		if err := w.publisher.Publish(ctx, item.ID, data); err != nil {
			w.log.Error().Err(apperrors.NewPublisher(item.ID, "publish failed", err)).Msg("Failed to publish item")
		}
	}

	if err := w.publisher.TrimStreams(ctx); err != nil {
		w.log.Error().Err(apperrors.NewPublisher("streams", "trim failed", err)).Msg("Failed to trim streams")
	}
}

// Dedupe keeps the first item seen per id, preserving order
func Dedupe(items []crawler.DiscountedItem) []crawler.DiscountedItem {
	seen := make(map[string]struct{}, len(items))
	unique := make([]crawler.DiscountedItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
