// Package questionbank reads question bank files used for seeding and for running without Postgres.
package questionbank

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"safepass-compliance/internal/domain"
)

// File is the YAML layout of a question bank.
type File struct {
	Questions []domain.Question `yaml:"questions"`
}

// Load reads and validates a YAML question bank. Region codes are normalized.
func Load(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML question bank and rejects duplicate ids and invalid questions.
func Parse(data []byte) ([]domain.Question, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Questions))
	for i := range file.Questions {
		q := &file.Questions[i]
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
		for j, r := range q.Regions {
			q.Regions[j] = domain.ParseRegion(string(r))
		}
	}
	return file.Questions, nil
}
