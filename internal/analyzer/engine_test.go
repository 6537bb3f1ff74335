package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigocheck/internal/config"
	"bigocheck/internal/models"
	"bigocheck/internal/pyparse"
)

func heuristicOnlyConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Remote.Enabled = false
	return cfg
}

// stubClassifier stands in for the remote stage in fallback tests.
type stubClassifier struct {
	err     error
	verdict models.Verdict
	calls   int
}

func (s *stubClassifier) Name() string { return "remote" }

func (s *stubClassifier) Classify(_ context.Context, fn pyparse.FunctionUnit, _ SignalProfile) (models.Verdict, error) {
	s.calls++
	if s.err != nil {
		return models.Verdict{}, s.err
	}
	v := s.verdict
	v.Function = fn.Name
	return v, nil
}

const multiFuncSrc = `
def alpha():
    pass

def beta(items):
    for x in items:
        print(x)

def gamma(n):
    for i in range(n):
        for j in range(n):
            print(i, j)

def delta(n):
    if n == 0:
        return
    delta(n - 1)
`

func TestEngineHeuristicOnlyWhenRemoteDisabled(t *testing.T) {
	engine := NewEngine(heuristicOnlyConfig())
	assert.True(t, engine.HeuristicOnly())

	verdicts, err := engine.AnalyzeSource(context.Background(), []byte(multiFuncSrc))
	require.NoError(t, err)
	require.Len(t, verdicts, 4)
	for _, v := range verdicts {
		assert.Equal(t, models.SourceHeuristic, v.Source, v.Function)
	}
}

func TestEngineOutputOrderMatchesExtraction(t *testing.T) {
	cfg := heuristicOnlyConfig()
	cfg.Analysis.MaxWorkers = 8
	engine := NewEngine(cfg)

	verdicts, err := engine.AnalyzeSource(context.Background(), []byte(multiFuncSrc))
	require.NoError(t, err)

	got := make([]string, len(verdicts))
	for i, v := range verdicts {
		got[i] = v.Function
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, got)
}

func TestEngineFallsBackPerFunctionOnRemoteFailure(t *testing.T) {
	stub := &stubClassifier{err: ErrRemoteUnavailable}
	engine := NewEngineWithClassifiers(heuristicOnlyConfig(), stub)

	verdicts, err := engine.AnalyzeSource(context.Background(), []byte(multiFuncSrc))
	require.NoError(t, err)
	require.Len(t, verdicts, 4)

	assert.Equal(t, 4, stub.calls)
	for _, v := range verdicts {
		assert.Equal(t, models.SourceHeuristic, v.Source)
	}
	// The fallback still classified everything correctly.
	assert.Equal(t, models.ClassQuadratic, verdicts[2].TimeClass)
}

func TestEngineUsesRemoteVerdictWhenAvailable(t *testing.T) {
	stub := &stubClassifier{verdict: models.Verdict{
		TimeClass:  models.ClassLinearithmic,
		SpaceClass: models.ClassLinear,
		Source:     models.SourceRemote,
	}}
	engine := NewEngineWithClassifiers(heuristicOnlyConfig(), stub)

	verdicts, err := engine.AnalyzeSource(context.Background(), []byte("def f():\n    pass\n"))
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, models.SourceRemote, verdicts[0].Source)
	assert.Equal(t, models.ClassLinearithmic, verdicts[0].TimeClass)
}

func TestEngineParseErrorAbortsRequest(t *testing.T) {
	engine := NewEngine(heuristicOnlyConfig())

	verdicts, err := engine.AnalyzeSource(context.Background(), []byte("def broken(:\n    pass\n"))
	require.Error(t, err)
	assert.Nil(t, verdicts)

	var parseErr *pyparse.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestEngineDeterministicOnHeuristicPath(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample.py"))
	require.NoError(t, err)

	engine := NewEngine(heuristicOnlyConfig())

	first, err := engine.AnalyzeSource(context.Background(), src)
	require.NoError(t, err)
	second, err := engine.AnalyzeSource(context.Background(), src)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestEngineUnreachableRemoteMatchesHeuristicOnly(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample.py"))
	require.NoError(t, err)

	baseline, err := NewEngine(heuristicOnlyConfig()).AnalyzeSource(context.Background(), src)
	require.NoError(t, err)

	t.Setenv(testKeyEnv, "sk-test")
	cfg := config.DefaultConfig()
	cfg.Remote.Enabled = true
	cfg.Remote.APIKeyEnv = testKeyEnv
	cfg.Remote.BaseURL = "http://127.0.0.1:9/v1" // nothing listens here
	cfg.Remote.TimeoutSeconds = 1

	engine := NewEngine(cfg)
	assert.False(t, engine.HeuristicOnly())

	withDeadRemote, err := engine.AnalyzeSource(context.Background(), src)
	require.NoError(t, err)

	baselineJSON, err := json.Marshal(baseline)
	require.NoError(t, err)
	deadRemoteJSON, err := json.Marshal(withDeadRemote)
	require.NoError(t, err)
	assert.Equal(t, baselineJSON, deadRemoteJSON)
}

func TestEngineVerdictsStayInClosedSet(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample.py"))
	require.NoError(t, err)

	verdicts, err := NewEngine(heuristicOnlyConfig()).AnalyzeSource(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, verdicts)

	for _, v := range verdicts {
		_, ok := models.ParseClass(v.TimeClass.String())
		assert.True(t, ok, "time label %q for %s", v.TimeClass, v.Function)
		_, ok = models.ParseClass(v.SpaceClass.String())
		assert.True(t, ok, "space label %q for %s", v.SpaceClass, v.Function)
		assert.True(t, v.SpaceClass.IsSpaceClass(), "space class for %s", v.Function)
	}
}

func TestEngineSampleFileExpectations(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample.py"))
	require.NoError(t, err)

	verdicts, err := NewEngine(heuristicOnlyConfig()).AnalyzeSource(context.Background(), src)
	require.NoError(t, err)

	want := map[string]models.Class{
		"greet":         models.ClassConstant,
		"total":         models.ClassLinear,
		"foo":           models.ClassQuadratic,
		"fib":           models.ClassExponential,
		"countdown":     models.ClassLinear,
		"binary_search": models.ClassLogarithmic,
		"find_first":    models.ClassLinear,
		"pairs":         models.ClassQuadratic,
		"merge_sort":    models.ClassLinearithmic,
		"permutations":  models.ClassFactorial,
		"Stack.push":    models.ClassConstant,
		"Stack.drain":   models.ClassLinear,
		"outer":         models.ClassConstant,
		"outer.inner":   models.ClassConstant,
	}

	got := make(map[string]models.Class, len(verdicts))
	for _, v := range verdicts {
		got[v.Function] = v.TimeClass
	}
	for name, class := range want {
		assert.Equal(t, class, got[name], "function %s", name)
	}
}

func TestEngineAnalyzeFilesRecordsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.py")
	bad := filepath.Join(dir, "bad.py")
	require.NoError(t, os.WriteFile(good, []byte("def ok():\n    pass\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("def broken(:\n"), 0644))

	report, err := NewEngine(heuristicOnlyConfig()).AnalyzeFiles(context.Background(), []string{good, bad, filepath.Join(dir, "missing.py")})
	require.NoError(t, err)

	assert.Equal(t, []string{good}, report.Files)
	assert.Equal(t, 1, report.TotalFunctions)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, good, report.Verdicts[0].File)
}
