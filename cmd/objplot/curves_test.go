package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbobjective/objective"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

func newObjective(t *testing.T, name string, args objective.Args) objective.Objective {
	t.Helper()
	obj, err := objective.Create(name, nil)
	require.NoError(t, err)
	require.NoError(t, obj.Configure(args))
	return obj
}

func TestSampleCurves(t *testing.T) {
	c, err := sampleCurves(newObjective(t, "reg:squarederror", nil), 1, -1, 3, 5)
	require.NoError(t, err)

	require.Len(t, c.Grad, 5)
	require.Len(t, c.Loss, 5)
	assert.Equal(t, -1.0, c.Grad[0].X)
	assert.Equal(t, 3.0, c.Grad[4].X)
	for i, xy := range c.Grad {
		assert.InDelta(t, xy.X-1, xy.Y, 1e-12, "gradient at %d", i)
		assert.Equal(t, 1.0, c.Hess[i].Y)
	}
	assert.InDelta(t, 2.0, c.Loss[0].Y, 1e-12)
}

func TestSampleCurvesRejects(t *testing.T) {
	_, err := sampleCurves(newObjective(t, "reg:squarederror", nil), 0, 1, 1, 10)
	assert.Error(t, err)

	_, err = sampleCurves(newObjective(t, "multi:softprob", objective.Args{"num_class": "3"}), 0, -1, 1, 10)
	assert.Error(t, err, "several outputs per row")

	_, err = sampleCurves(newObjective(t, "reg:gamma", nil), -1, -1, 1, 10)
	assert.True(t, errors.IsData(err))
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(" huber_slope=0.5 , seed=3")
	require.NoError(t, err)
	assert.Equal(t, objective.Args{"huber_slope": "0.5", "seed": "3"}, args)

	args, err = parseArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = parseArgs("huber_slope")
	assert.True(t, errors.IsConfiguration(err))
}

func TestParseOptions(t *testing.T) {
	o, err := parseOptions([]string{})
	require.NoError(t, err)
	assert.Equal(t, options{Objective: "reg:squarederror", Min: -3, Max: 3, Points: 200, Out: "objective.png"}, o)

	o, err = parseOptions([]string{"-o", "reg:fair", "--args=fair_c=2", "--label=1.5", "--min=-1", "-n", "10", "--out=fair.svg"})
	require.NoError(t, err)
	assert.Equal(t, "reg:fair", o.Objective)
	assert.Equal(t, "fair_c=2", o.Args)
	assert.Equal(t, 1.5, o.Label)
	assert.Equal(t, -1.0, o.Min)
	assert.Equal(t, 10, o.Points)
	assert.Equal(t, "fair.svg", o.Out)

	o, err = parseOptions([]string{"list"})
	require.NoError(t, err)
	assert.True(t, o.List)

	o, err = parseOptions([]string{"--help"})
	require.NoError(t, err)
	assert.True(t, o.Help)

	_, err = parseOptions([]string{"--label=abc"})
	assert.True(t, errors.IsConfiguration(err))

	_, err = parseOptions([]string{"--bogus"})
	assert.Error(t, err)
}

func TestListObjectives(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listObjectives(&buf, objective.Default()))

	out := buf.String()
	for _, name := range objective.Default().Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "cox-nloglik")
}

func TestLoadRuntime(t *testing.T) {
	// godotenv never overrides a variable that is already set
	t.Setenv("GBOBJ_SEED", "")
	require.NoError(t, os.Unsetenv("GBOBJ_SEED"))

	path := filepath.Join(t.TempDir(), "objplot.env")
	require.NoError(t, os.WriteFile(path, []byte("GBOBJ_SEED=42\n"), 0o600))

	cfg, err := loadRuntime(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)

	_, err = loadRuntime(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fair.svg")
	opts := options{Objective: "reg:fair", Args: "fair_c=2", Min: -2, Max: 2, Points: 20, Out: out}
	require.NoError(t, run(objective.DefaultContext(), opts))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	opts.Objective = "reg:nope"
	assert.Error(t, run(objective.DefaultContext(), opts))
}
