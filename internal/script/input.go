package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cupidx/internal/types"
)

// Input is the answers file for a scripted run. Anything left out is asked
// for on the prompt reader.
type Input struct {
	Profile types.ScreeningProfile `yaml:"profile"`
	Answers []string               `yaml:"answers"`
	Context ContextInput           `yaml:"context"`
}

// ContextInput feeds the context coach.
type ContextInput struct {
	Text  string `yaml:"text"`
	Image string `yaml:"image"`
}

// LoadInput reads an answers file.
func LoadInput(path string) (Input, error) {
	var in Input
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("script: read answers file: %w", err)
	}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("script: parse answers file %s: %w", path, err)
	}
	return in, nil
}
