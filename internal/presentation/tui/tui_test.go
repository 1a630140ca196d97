package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintHealth(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintHealth(&buf, furrow.HealthReport{
		Ready:        true,
		RegistrySize: 2,
		HealthyCount: 1,
		Workers: []furrow.WorkerHealth{
			{Name: "weather", Summary: "Forecasts", Healthy: true},
			{Name: "market", Summary: "Prices", Healthy: false},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "weather")
	assert.Contains(t, out, "market")
	assert.Contains(t, out, "1/2 workers healthy")
	assert.Contains(t, out, "oracle off")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestRenderer(t *testing.T) {
	out, err := tui.Plain("**Weather**\nSunny.\n\n")
	require.NoError(t, err)
	assert.Equal(t, "**Weather**\nSunny.\n", out)

	render := tui.NewRenderer(60)
	out, err = render("**Weather**\n\nSunny.")
	require.NoError(t, err)
	assert.Contains(t, out, "Weather")
	assert.Contains(t, out, "Sunny.")
}
