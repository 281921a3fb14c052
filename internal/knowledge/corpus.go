// Package knowledge holds the best-practice corpus and the retrieval index
// used to ground empathetic feedback in established engineering guidance.
package knowledge

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrCorpusNotFound = errors.New("corpus file not found")
	ErrCorpusParsing  = errors.New("corpus parsing failed")
)

// Item is one entry of the best-practice corpus.
type Item struct {
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
	Resource string `yaml:"resource_link"`
}

type corpusFile struct {
	Items []Item `yaml:"items"`
}

// DefaultCorpus returns the built-in best-practice corpus.
func DefaultCorpus() []Item {
	return []Item{
		{
			Content:  "List comprehensions in Python are more efficient than traditional for loops with append operations because they are optimized at the C level and don't require multiple function calls.",
			Category: "performance",
			Resource: "https://docs.python.org/3/tutorial/datastructures.html#list-comprehensions",
		},
		{
			Content:  "Meaningful variable names improve code readability and maintainability. Single-letter variables should be avoided except for short loops or mathematical contexts.",
			Category: "readability",
			Resource: "https://pep8.org/#naming-conventions",
		},
		{
			Content:  "Comparing boolean values with == True or == False is redundant in Python. The truthiness of the value can be evaluated directly.",
			Category: "pythonic",
			Resource: "https://pep8.org/#programming-recommendations",
		},
		{
			Content:  "Code reviews should focus on improvement rather than criticism. Constructive feedback helps team members learn and grow.",
			Category: "team_dynamics",
			Resource: "https://google.github.io/eng-practices/review/reviewer/comments.html",
		},
		{
			Content:  "Performance optimizations should be considered when dealing with large datasets. Algorithm complexity matters for scalability.",
			Category: "performance",
			Resource: "https://wiki.python.org/moin/PythonSpeed/PerformanceTips",
		},
		{
			Content:  "Filter operations in functional programming can be combined with map operations for cleaner, more readable code.",
			Category: "functional_programming",
			Resource: "https://docs.python.org/3/howto/functional.html",
		},
	}
}

// LoadCorpus reads a YAML corpus file with an `items` list. A missing file
// falls back to the built-in corpus and reports ErrCorpusNotFound so the
// caller can decide whether that matters.
func LoadCorpus(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCorpus(), ErrCorpusNotFound
		}
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorpusParsing, err)
	}
	if len(f.Items) == 0 {
		return DefaultCorpus(), nil
	}
	return f.Items, nil
}
