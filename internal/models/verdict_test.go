package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassAcceptsClosedSet(t *testing.T) {
	cases := map[string]Class{
		"O(1)":        ClassConstant,
		"O(log n)":    ClassLogarithmic,
		"O(logn)":     ClassLogarithmic,
		"O(sqrt n)":   ClassSqrt,
		"O(sqrt(n))":  ClassSqrt,
		"O(n)":        ClassLinear,
		"O(N)":        ClassLinear,
		"O(n log n)":  ClassLinearithmic,
		"O(nlogn)":    ClassLinearithmic,
		"O(n^2)":      ClassQuadratic,
		"O(n**2)":     ClassQuadratic,
		"O(n²)":       ClassQuadratic,
		"O(n^3)":      ClassCubic,
		"O(2^n)":      ClassExponential,
		"O(n!)":       ClassFactorial,
		"unknown":     ClassUnknown,
		" O(n) ":      ClassLinear,
		"o(n log n)":  ClassLinearithmic,
		"O(n * logn)": ClassLinearithmic,
	}
	for label, want := range cases {
		got, ok := ParseClass(label)
		require.True(t, ok, "label %q should parse", label)
		assert.Equal(t, want, got, "label %q", label)
	}
}

func TestParseClassRejectsFreeForm(t *testing.T) {
	for _, label := range []string{"", "O(banana)", "linearish", "O(n^4)", "T(n)=2T(n/2)", "fast", "O(2n)", "O(2*n)"} {
		_, ok := ParseClass(label)
		assert.False(t, ok, "label %q must not parse", label)
	}
}

func TestClassStringRoundTrip(t *testing.T) {
	for c := ClassConstant; c <= ClassUnknown; c++ {
		parsed, ok := ParseClass(c.String())
		require.True(t, ok, "canonical label %q", c.String())
		assert.Equal(t, c, parsed)
	}
}

func TestIsSpaceClass(t *testing.T) {
	assert.True(t, ClassConstant.IsSpaceClass())
	assert.True(t, ClassLogarithmic.IsSpaceClass())
	assert.True(t, ClassLinear.IsSpaceClass())
	assert.True(t, ClassQuadratic.IsSpaceClass())
	assert.True(t, ClassUnknown.IsSpaceClass())
	assert.False(t, ClassCubic.IsSpaceClass())
	assert.False(t, ClassExponential.IsSpaceClass())
	assert.False(t, ClassFactorial.IsSpaceClass())
}

func TestVerdictJSONFields(t *testing.T) {
	v := Verdict{
		Function:   "foo",
		TimeClass:  ClassQuadratic,
		SpaceClass: ClassConstant,
		Source:     SourceHeuristic,
		Loops:      2,
		Recursion:  0,
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "foo", got["function"])
	assert.Equal(t, "O(n^2)", got["big_o"])
	assert.Equal(t, "O(1)", got["space_complexity"])
	assert.Equal(t, "heuristic", got["source"])
	assert.Equal(t, float64(2), got["loops"])
	assert.Equal(t, float64(0), got["recursion"])
}

func TestClassUnmarshalRejectsUnknownLabel(t *testing.T) {
	var c Class
	err := json.Unmarshal([]byte(`"O(banana)"`), &c)
	assert.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`"O(n!)"`), &c))
	assert.Equal(t, ClassFactorial, c)
}

func TestReportAddVerdict(t *testing.T) {
	r := NewReport()
	r.AddVerdict(Verdict{Function: "a", Source: SourceHeuristic})
	r.AddVerdict(Verdict{Function: "b", Source: SourceRemote})

	assert.Equal(t, 2, r.TotalFunctions)
	assert.Equal(t, 1, r.VerdictsBySource["heuristic"])
	assert.Equal(t, 1, r.VerdictsBySource["remote"])
}
