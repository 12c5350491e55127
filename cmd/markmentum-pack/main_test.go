package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/markmentum-portal/internal/report"
)

func TestPackForm_DefaultsToMorningCompass(t *testing.T) {
	registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)

	form, err := packForm(registry, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"morning_compass"}, registry.Selected(form))
}

func TestPackForm_TimeframesAndOptions(t *testing.T) {
	registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)

	form, err := packForm(registry, []string{"market_overview"}, []string{"Weekly", "Monthly"}, nil)
	require.NoError(t, err)

	m, ok := registry.Get("market_overview")
	require.True(t, ok)
	assert.Equal(t, []string{"Weekly", "Monthly"}, m.Configure(form).Timeframes)
}

func TestPackForm_Errors(t *testing.T) {
	registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)

	_, err := packForm(registry, []string{"nope"}, nil, nil)
	assert.Error(t, err)

	_, err = packForm(registry, nil, nil, []string{"no-equals"})
	assert.Error(t, err)

	_, err = packForm(registry, nil, nil, []string{"morning_compass.heatmaps=0"})
	assert.ErrorContains(t, err, `no option "heatmaps"`)

	_, err = packForm(registry, nil, nil, []string{"nope.macro=0"})
	assert.ErrorContains(t, err, "unknown module")
}

func TestPackForm_OptionOverridesDefault(t *testing.T) {
	registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)

	form, err := packForm(registry, nil, nil, []string{"morning_compass.correlations=0"})
	require.NoError(t, err)

	m, ok := registry.Get("morning_compass")
	require.True(t, ok)
	opts := m.Configure(form)
	assert.False(t, opts.On("correlations"))
	assert.True(t, opts.On("macro"))
}

func TestWriteModules(t *testing.T) {
	var buf bytes.Buffer
	writeModules(&buf, report.NewRegistry(nil, report.DefaultModules(nil, nil)...))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "morning_compass"))
	assert.True(t, strings.HasPrefix(lines[6], "vantage_point"))
}

func TestRunBuild_EmptyDataGeneratesNothing(t *testing.T) {
	g := &globals{dataDir: t.TempDir(), logLevel: "error"}
	env, err := g.load()
	require.NoError(t, err)

	var out bytes.Buffer
	err = runBuild(context.Background(), env, t.TempDir(), nil, nil, nil, &out)
	assert.True(t, errors.Is(err, report.ErrNothingGenerated))
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "markmentum-pack version")
}
