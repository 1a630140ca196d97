package classifier

import (
	"fmt"
	"os"

	"github.com/aretw0/furrow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk shape of a fallback rule table:
//
//	catch_all: knowledge
//	rules:
//	  - worker: weather
//	    keywords: [weather, rain, forecast]
type RuleFile struct {
	CatchAll domain.WorkerName `yaml:"catch_all"`
	Rules    []Rule            `yaml:"rules"`
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if rf.CatchAll == "" {
		rf.CatchAll = domain.WorkerKnowledge
	}
	return &rf, nil
}

// LoadRules reads a YAML rule table from disk and compiles it.
// An empty path yields the default matcher.
func LoadRules(path string) (*FallbackMatcher, error) {
	if path == "" {
		return NewDefaultMatcher(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rf, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return NewFallbackMatcher(rf.Rules, rf.CatchAll)
}
