package analyzer

import (
	"context"

	"bigocheck/internal/models"
	"bigocheck/internal/pyparse"
)

// Classifier turns one function's evidence into a verdict. Failure is a
// typed error the orchestrator inspects; classifiers never panic across
// the boundary.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, fn pyparse.FunctionUnit, profile SignalProfile) (models.Verdict, error)
}

// HeuristicClassifier maps a SignalProfile onto the closed class set via
// an ordered rule table. It is total: it always returns a verdict and
// the error is always nil.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Name() string { return "heuristic" }

func (h HeuristicClassifier) Classify(_ context.Context, fn pyparse.FunctionUnit, p SignalProfile) (models.Verdict, error) {
	return models.Verdict{
		Function:   fn.Name,
		TimeClass:  timeClass(p),
		SpaceClass: spaceClass(p),
		Source:     models.SourceHeuristic,
		Loops:      p.MaxLoopDepth,
		Recursion:  p.RecursiveCalls,
		EarlyExit:  p.HasEarlyTermination,
	}, nil
}

// timeClass applies the rule table, first match wins. Recursion signals
// take precedence over loop nesting: unbounded call depth is the
// stronger cost signal. Ambiguous shapes resolve to the coarser class.
func timeClass(p SignalProfile) models.Class {
	if p.MaxLoopDepth < 0 || p.RecursiveCalls < 0 {
		return models.ClassUnknown
	}

	var c models.Class
	switch {
	case p.Backtracking:
		// Self-call per loop iteration with mutate/undo bookkeeping:
		// T(n) = n * T(n-1).
		c = models.ClassFactorial

	case p.RecursiveCalls >= 2:
		if p.HalvingRecursion {
			// Two calls on half the input each: T(n) = 2T(n/2) + O(n).
			c = models.ClassLinearithmic
		} else {
			c = models.ClassExponential
		}

	case p.RecursiveCalls == 1:
		if p.HalvingRecursion && p.MaxLoopDepth == 0 {
			c = models.ClassLogarithmic
		} else {
			// A self-call inside k loop levels compounds to degree k+1.
			c = polynomialClass(1 + p.RecursionLoopDepth)
		}

	default:
		c = loopClass(p)
	}

	if p.LinearithmicCalls > 0 && c < models.ClassLinearithmic {
		c = models.ClassLinearithmic
	}
	return c
}

// loopClass classifies pure iteration. Bound refinements only apply at
// the depths where they were observed; nesting beyond the table range is
// reported as unknown rather than mis-tagged with a tighter bound.
func loopClass(p SignalProfile) models.Class {
	switch p.MaxLoopDepth {
	case 0:
		return models.ClassConstant
	case 1:
		if p.LogLoops {
			return models.ClassLogarithmic
		}
		if p.SqrtLoops {
			return models.ClassSqrt
		}
		return models.ClassLinear
	case 2:
		if p.LogLoops {
			return models.ClassLinearithmic
		}
		return models.ClassQuadratic
	case 3:
		return models.ClassCubic
	default:
		return models.ClassUnknown
	}
}

func polynomialClass(degree int) models.Class {
	switch degree {
	case 0:
		return models.ClassConstant
	case 1:
		return models.ClassLinear
	case 2:
		return models.ClassQuadratic
	case 3:
		return models.ClassCubic
	default:
		return models.ClassUnknown
	}
}

// spaceClass starts from an O(1) baseline and raises on growing-container
// allocation or call-stack growth. Recursion depth is assumed linear
// unless the collector saw explicit halving.
func spaceClass(p SignalProfile) models.Class {
	if p.MaxLoopDepth < 0 || p.RecursiveCalls < 0 {
		return models.ClassUnknown
	}
	switch {
	case p.AllocLoopDepth >= 2:
		return models.ClassQuadratic
	case p.AllocatesGrowingContainer():
		return models.ClassLinear
	case p.RecursiveCalls >= 1:
		if p.HalvingRecursion {
			return models.ClassLogarithmic
		}
		return models.ClassLinear
	default:
		return models.ClassConstant
	}
}
