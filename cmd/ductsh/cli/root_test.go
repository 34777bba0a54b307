package cli

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSplitStages(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want [][]string
	}{
		{"single", []string{"echo", "hi"}, [][]string{{"echo", "hi"}}},
		{
			"two stages",
			[]string{"echo", "hi", "--", "sed", "s/i/o/"},
			[][]string{{"echo", "hi"}, {"sed", "s/i/o/"}},
		},
		{"empty", nil, [][]string{nil}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := splitStages(c.args)
			qt.Assert(t, got, qt.DeepEquals, c.want)
		})
	}
}

func TestBuildPipelineRejectsEmptyStage(t *testing.T) {
	_, err := buildPipeline([][]string{{"echo", "hi"}, {}})
	qt.Assert(t, err != nil, qt.Equals, true)
}

func TestBuildPipelineRejectsNoStages(t *testing.T) {
	_, err := buildPipeline(nil)
	qt.Assert(t, err != nil, qt.Equals, true)
}

func TestBuildPipelineRunsTwoStages(t *testing.T) {
	expr, err := buildPipeline([][]string{{"echo", "hi"}, {"sed", "s/i/o/"}})
	qt.Assert(t, err, qt.IsNil)

	got, err := expr.Read(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got, qt.Equals, "ho")
}
