package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// ErrParseFailure is returned by an extractor that could not produce a record.
var ErrParseFailure = errors.New("parse failure")

// ErrUnreadable is returned when a file cannot be read.
var ErrUnreadable = errors.New("unreadable file")

// ErrNoGrammar is returned by the grammar tier for a language with no loaded
// grammar. It is a routing state, not a parse failure.
var ErrNoGrammar = errors.New("no grammar loaded")

// Tier identifies an extraction strategy, ordered by fidelity.
type Tier int

const (
	TierNative Tier = iota
	TierGrammar
	TierHeuristic
	TierDegenerate
)

// Tiers lists the extraction tiers in fallback order.
var Tiers = []Tier{TierNative, TierGrammar, TierHeuristic}

func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierGrammar:
		return "grammar"
	case TierHeuristic:
		return "heuristic"
	case TierDegenerate:
		return "degenerate"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Source is one file handed to an extractor.
type Source struct {
	Path     string // repo-relative, "/"-separated
	Language graph.Language
	Content  []byte
}

// File returns the File record for the source.
func (s Source) File() graph.FileNode {
	return graph.NewFileNode(s.Path, s.Language)
}

// Extractor turns one source file into a canonical record.
type Extractor interface {
	Tier() Tier
	Extract(ctx context.Context, src Source) (*graph.Record, error)
}

// ExtractError describes a failed extraction attempt.
type ExtractError struct {
	Path string
	Tier Tier
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s: %s extractor: %v", e.Path, e.Tier, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// parseFailure wraps err as a ParseFailure for the given tier.
func parseFailure(src Source, tier Tier, err error) *ExtractError {
	return &ExtractError{Path: src.Path, Tier: tier, Err: fmt.Errorf("%w: %w", ErrParseFailure, err)}
}

// Outcome is the result of running the fallback chain over one file.
type Outcome struct {
	Record *graph.Record
	// Tier is the tier that produced Record, or TierDegenerate.
	Tier Tier
	// Failures holds one entry per tier that was attempted and failed.
	Failures []*ExtractError
	// MissingGrammar is set when the grammar tier was skipped for lack of a
	// loaded grammar.
	MissingGrammar bool
	// Unreadable is set when the file could not be read at all.
	Unreadable bool
}

// Chain runs the per-file fallback state machine:
//
//	read fails                     -> degenerate
//	native ok                      -> done, else grammar
//	grammar loaded: ok             -> done, else heuristic
//	grammar missing                -> tally, heuristic
//	heuristic ok                   -> done, else degenerate
//
// Every call yields a record, so every routed file gets a File node.
type Chain struct {
	native    map[graph.Language]Extractor
	grammar   Extractor
	heuristic Extractor
	logger    *slog.Logger
}

// NewChain builds a Chain with the native extractors for Python and Go, the
// grammar extractor over grammars, and the heuristic extractor.
func NewChain(grammars *Grammars, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		native: map[graph.Language]Extractor{
			graph.LangPython: NewPythonExtractor(),
			graph.LangGo:     NewGoExtractor(),
		},
		grammar:   NewGrammarExtractor(grammars),
		heuristic: NewHeuristicExtractor(),
		logger:    logger,
	}
}

// tiersFor returns the extractors tried for lang, in order.
func (c *Chain) tiersFor(lang graph.Language) []Extractor {
	var out []Extractor
	if n, ok := c.native[lang]; ok {
		out = append(out, n)
	}
	return append(out, c.grammar, c.heuristic)
}

// ExtractFile reads root/rel and runs the chain over it.
func (c *Chain) ExtractFile(ctx context.Context, root, rel string, lang graph.Language) Outcome {
	src := Source{Path: graph.NormalizePath(rel), Language: lang}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		c.logger.Warn("extract.unreadable", "path", src.Path, "error", err)
		return Outcome{
			Record:     graph.Degenerate(src.File()),
			Tier:       TierDegenerate,
			Failures:   []*ExtractError{{Path: src.Path, Tier: TierDegenerate, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}},
			Unreadable: true,
		}
	}
	src.Content = content
	return c.Extract(ctx, src)
}

// Extract runs the chain over in-memory source.
func (c *Chain) Extract(ctx context.Context, src Source) Outcome {
	var out Outcome
	for _, ex := range c.tiersFor(src.Language) {
		if ctx.Err() != nil {
			break
		}
		rec, err := safeExtract(ctx, ex, src)
		if err == nil {
			rec.File = src.File()
			out.Record = rec
			out.Tier = ex.Tier()
			return out
		}
		if errors.Is(err, ErrNoGrammar) {
			out.MissingGrammar = true
			c.logger.Debug("extract.no_grammar", "path", src.Path, "language", src.Language)
			continue
		}
		var xe *ExtractError
		if !errors.As(err, &xe) {
			xe = parseFailure(src, ex.Tier(), err)
		}
		out.Failures = append(out.Failures, xe)
		c.logger.Warn("extract.fallback", "path", src.Path, "tier", ex.Tier(), "error", err)
	}
	out.Record = graph.Degenerate(src.File())
	out.Tier = TierDegenerate
	return out
}

// safeExtract calls ex.Extract, converting a panic into a ParseFailure.
func safeExtract(ctx context.Context, ex Extractor, src Source) (rec *graph.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = parseFailure(src, ex.Tier(), fmt.Errorf("panic: %v", r))
		}
	}()
	rec, err = ex.Extract(ctx, src)
	if err == nil && rec == nil {
		err = parseFailure(src, ex.Tier(), errors.New("nil record"))
	}
	return rec, err
}
