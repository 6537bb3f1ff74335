package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bigocheck/internal/config"
	"bigocheck/internal/models"
	"bigocheck/internal/pyparse"
)

// Engine orchestrates extraction, signal collection and classification.
// Classifiers are tried in chain order; the first success wins. The
// heuristic sits last and is total, so every extracted function yields
// exactly one verdict.
type Engine struct {
	cfg       *config.Config
	extractor *pyparse.Extractor
	chain     []Classifier
}

func NewEngine(cfg *config.Config) *Engine {
	var chain []Classifier
	if cfg.Remote.Enabled {
		remote, err := NewRemoteClassifier(cfg.Remote)
		switch {
		case err == nil:
			chain = append(chain, remote)
		case errors.Is(err, ErrRemoteUnavailable):
			slog.Debug("remote classifier off, running heuristic-only", "reason", err)
		default:
			slog.Warn("remote classifier construction failed", "error", err)
		}
	}
	chain = append(chain, HeuristicClassifier{})

	extractor := pyparse.NewExtractor()
	if cfg.Analysis.MaxFileSize > 0 {
		extractor.SetMaxSourceBytes(cfg.Analysis.MaxFileSize * 1024)
	}

	return &Engine{cfg: cfg, extractor: extractor, chain: chain}
}

// NewEngineWithClassifiers builds an engine around an explicit chain.
// The heuristic is appended if the chain does not already end with a
// total classifier, keeping the fallback guarantee.
func NewEngineWithClassifiers(cfg *config.Config, chain ...Classifier) *Engine {
	full := make([]Classifier, 0, len(chain)+1)
	full = append(full, chain...)
	if len(full) == 0 || full[len(full)-1].Name() != "heuristic" {
		full = append(full, HeuristicClassifier{})
	}
	return &Engine{cfg: cfg, extractor: pyparse.NewExtractor(), chain: full}
}

// AnalyzeSource analyzes one source text and returns verdicts in
// extraction order. A parse failure aborts the whole request: the
// verdict slice is nil and the error is the *pyparse.ParseError.
func (e *Engine) AnalyzeSource(ctx context.Context, src []byte) ([]models.Verdict, error) {
	file, err := e.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	verdicts := make([]models.Verdict, len(file.Functions))

	// Functions are independent; fan out but land each result at its
	// extraction index so output order never depends on scheduling.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers())
	for i, fn := range file.Functions {
		i, fn := i, fn
		g.Go(func() error {
			profile := CollectSignals(fn, file.Src)
			verdicts[i] = e.classify(gctx, fn, profile)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// AnalyzeFiles runs AnalyzeSource over each path. Unreadable or
// unparseable files become report-level diagnostics; the remaining
// files still produce verdicts.
func (e *Engine) AnalyzeFiles(ctx context.Context, paths []string) (*models.Report, error) {
	start := time.Now()
	report := models.NewReport()

	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			report.AddError(path, err)
			continue
		}
		verdicts, err := e.AnalyzeSource(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.AddError(path, err)
			continue
		}
		report.Files = append(report.Files, path)
		for _, v := range verdicts {
			v.File = path
			report.AddVerdict(v)
		}
	}

	report.AnalysisDuration = time.Since(start).String()
	return report, nil
}

// classify walks the chain until a classifier succeeds. Remote failures
// are absorbed here; they demote to the next classifier, never to the
// user. The terminal heuristic cannot fail, so the zero-verdict return
// is unreachable with a well-formed chain.
func (e *Engine) classify(ctx context.Context, fn pyparse.FunctionUnit, profile SignalProfile) models.Verdict {
	for _, c := range e.chain {
		verdict, err := c.Classify(ctx, fn, profile)
		if err == nil {
			return verdict
		}
		slog.Debug("classifier failed, falling back", "classifier", c.Name(), "function", fn.Name, "error", err)
	}
	return models.Verdict{
		Function:   fn.Name,
		TimeClass:  models.ClassUnknown,
		SpaceClass: models.ClassUnknown,
		Source:     models.SourceHeuristic,
	}
}

// HeuristicOnly reports whether the chain has no remote stage.
func (e *Engine) HeuristicOnly() bool {
	return len(e.chain) == 1
}

func (e *Engine) maxWorkers() int {
	if e.cfg != nil && e.cfg.Analysis.MaxWorkers > 0 {
		return e.cfg.Analysis.MaxWorkers
	}
	return 1
}
