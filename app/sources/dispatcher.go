package sources

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/signal-comb/app/database"
)

// Result is the outcome of one dispatch. When Err is set the adapter failed and
// Candidates holds the synthetic placeholders.
type Result struct {
	Candidates []Candidate
	Kind       Kind
	Synthetic  bool
	Err        error
}

// Dispatcher routes a source to the adapter registered for its platform kind and
// is the single place adapter failures turn into synthetic content.
type Dispatcher struct {
	adapters map[Kind]Adapter
	fallback Adapter
}

// NewDispatcher registers adapters by kind; kinds without an adapter use fallback.
func NewDispatcher(adapters map[Kind]Adapter, fallback Adapter) *Dispatcher {
	registry := make(map[Kind]Adapter, len(adapters))
	for k, a := range adapters {
		registry[k] = a
	}
	return &Dispatcher{adapters: registry, fallback: fallback}
}

func (d *Dispatcher) adapterFor(kind Kind) Adapter {
	if a, ok := d.adapters[kind]; ok {
		return a
	}
	return d.fallback
}

func (d *Dispatcher) Dispatch(ctx context.Context, source database.Source) Result {
	kind := ParseKind(source.Platform)

	candidates, err := d.adapterFor(kind).FetchCandidates(ctx, source)
	if err != nil {
		slog.Warn("Source fetch failed, using synthetic fallback",
			"source", source.Name,
			"platform", source.Platform,
			"error", err)
		return Result{
			Candidates: Synthetic(source, err.Error()),
			Kind:       kind,
			Synthetic:  true,
			Err:        err,
		}
	}

	return Result{Candidates: candidates, Kind: kind}
}
