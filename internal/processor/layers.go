// Package processor preloads normalized layers into the on-disk cache.
package processor

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geolayers/internal/config"
)

// ErrNotNormalizable is returned for layer types the browser loads directly.
var ErrNotNormalizable = errors.New("processor: layer type is not normalized")

// Options controls a batch run.
type Options struct {
	CacheDir    string
	Concurrency int
	Force       bool
}

// Outcome reports what happened to one layer.
type Outcome struct {
	Err     error
	LayerID string
	Records int
	Skipped bool
}

// ProcessLayers normalizes every FeatureLayer of the list with a bounded
// worker pool and stores the results under opts.CacheDir. Layers of other
// types are ignored. A failing layer is logged and reported in its Outcome;
// the rest of the batch continues. Outcomes follow the order of layers.
func ProcessLayers(ctx context.Context, src Source, layers []config.Layer, opts Options) []Outcome {
	queued := make([]config.Layer, 0, len(layers))
	for _, l := range layers {
		if l.Normalizable() {
			queued = append(queued, l)
		}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > len(queued) {
		concurrency = len(queued)
	}

	type job struct {
		layer config.Layer
		index int
	}
	type result struct {
		outcome Outcome
		index   int
	}

	jobs := make(chan job, len(queued))
	results := make(chan result, len(queued))

	go func() {
		for i, l := range queued {
			jobs <- job{layer: l, index: i}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcome := processLayer(ctx, src, j.layer, opts)
				if outcome.Err != nil {
					log.Warn().
						Err(outcome.Err).
						Str("layer", j.layer.ID).
						Msg("Layer not added")
				}
				results <- result{outcome: outcome, index: j.index}
			}
		}()
	}
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, len(queued))
	for r := range results {
		outcomes[r.index] = r.outcome
	}

	return outcomes
}

func processLayer(ctx context.Context, src Source, layer config.Layer, opts Options) Outcome {
	outcome := Outcome{LayerID: layer.ID}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	if !opts.Force {
		if info, err := os.Stat(PayloadPath(opts.CacheDir, layer.ID)); err == nil && info.Size() > 0 {
			log.Debug().Str("layer", layer.ID).Msg("Cached payload exists, skipping")
			outcome.Skipped = true
			return outcome
		}
	}

	payload, err := Build(ctx, src, layer)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if err := SavePayload(opts.CacheDir, payload); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Records = len(payload.Result.Records)
	log.Info().
		Str("layer", layer.ID).
		Str("geometry", payload.Result.GeometryType).
		Int("records", outcome.Records).
		Int("fields", len(payload.Result.Fields)).
		Msg("Layer cached")

	return outcome
}
