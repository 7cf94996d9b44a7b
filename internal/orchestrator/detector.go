package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dusk-indust/structgraph/internal/extract"
	"github.com/dusk-indust/structgraph/internal/graph"
)

// CapabilityLevel describes how much structure a run can extract.
type CapabilityLevel int

const (
	// CapHeuristic: no grammar is loaded; non-native files use regexes only.
	CapHeuristic CapabilityLevel = iota

	// CapGrammar: some routed languages have grammars, some do not.
	CapGrammar

	// CapFull: every routed language has a grammar.
	CapFull
)

func (c CapabilityLevel) String() string {
	switch c {
	case CapHeuristic:
		return "heuristic"
	case CapGrammar:
		return "grammar"
	case CapFull:
		return "full"
	default:
		return "unknown"
	}
}

// Capabilities is the result of a preflight probe.
type Capabilities struct {
	Level CapabilityLevel
	// Grammars lists the loaded grammar languages.
	Grammars []graph.Language
	// Missing lists routed languages with no loaded grammar.
	Missing []graph.Language
}

// Detector probes the environment before a run starts.
type Detector interface {
	// Detect reports which grammars are available and verifies the store
	// is reachable. A store failure wraps graph.ErrUnavailable.
	Detect(ctx context.Context) (Capabilities, error)
}

var _ Detector = (*DefaultDetector)(nil)

// DefaultDetector checks grammar coverage of the router's languages and
// pings the store.
type DefaultDetector struct {
	store        graph.Store
	grammars     *extract.Grammars
	router       *extract.Router
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewDefaultDetector creates a DefaultDetector. store may be nil, in which
// case only grammars are probed.
func NewDefaultDetector(store graph.Store, grammars *extract.Grammars, router *extract.Router, logger *slog.Logger) *DefaultDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultDetector{
		store:        store,
		grammars:     grammars,
		router:       router,
		probeTimeout: 5 * time.Second,
		logger:       logger,
	}
}

// Detect implements Detector.
func (d *DefaultDetector) Detect(ctx context.Context) (Capabilities, error) {
	caps := Capabilities{Grammars: d.grammars.Loaded()}

	routed := d.router.Languages()
	sort.Slice(routed, func(i, j int) bool { return routed[i] < routed[j] })
	for _, lang := range routed {
		if _, ok := d.grammars.Lookup(lang); !ok {
			caps.Missing = append(caps.Missing, lang)
		}
	}

	switch {
	case len(caps.Grammars) == 0:
		caps.Level = CapHeuristic
	case len(caps.Missing) == 0:
		caps.Level = CapFull
	default:
		caps.Level = CapGrammar
	}

	d.logger.Debug("detect.capabilities", "level", caps.Level, "grammars", caps.Grammars, "missing", caps.Missing)

	if d.store == nil {
		return caps, nil
	}
	if err := d.probeStore(ctx); err != nil {
		if !errors.Is(err, graph.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", graph.ErrUnavailable, err)
		}
		return caps, err
	}
	return caps, nil
}

// probeStore pings the store within the probe timeout. A panic from the
// driver is reported as an error.
func (d *DefaultDetector) probeStore(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store probe panicked: %v", r)
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()
	return d.store.Ping(probeCtx)
}
