package classifier_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
catch_all: knowledge
rules:
  - worker: fertilizer
    keywords: [urea, npk]
  - worker: weather
    keywords: [rain, "heat wave"]
`

func TestParseRules(t *testing.T) {
	rf, err := classifier.ParseRules([]byte(rulesYAML))
	require.NoError(t, err)
	assert.Equal(t, domain.WorkerKnowledge, rf.CatchAll)
	require.Len(t, rf.Rules, 2)
	assert.Equal(t, domain.WorkerFertilizer, rf.Rules[0].Worker)
	assert.Equal(t, []string{"rain", "heat wave"}, rf.Rules[1].Keywords)
}

func TestParseRules_DefaultCatchAll(t *testing.T) {
	rf, err := classifier.ParseRules([]byte("rules: []"))
	require.NoError(t, err)
	assert.Equal(t, domain.WorkerKnowledge, rf.CatchAll)
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := classifier.ParseRules([]byte("rules: [this is: not: valid"))
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o644))

	m, err := classifier.LoadRules(path)
	require.NoError(t, err)

	// Declared order is fertilizer first.
	assert.Equal(t, domain.WorkerFertilizer, m.Classify("urea dose before rain"))
	assert.Equal(t, domain.WorkerWeather, m.Classify("heat wave alert"))
	assert.Equal(t, domain.WorkerKnowledge, m.Classify("what is millet"))
}

func TestLoadRules_EmptyPathUsesDefaults(t *testing.T) {
	m, err := classifier.LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, classifier.DefaultRules()[0].Worker, m.Rules()[0].Worker)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := classifier.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
