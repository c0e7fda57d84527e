package vocabulary

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ptBR is the built-in English→Brazilian Portuguese dictionary for objects
// commonly handed in to a lost-and-found desk.
//
//go:embed pt_br.yaml
var ptBR []byte

// file is the on-disk shape of a vocabulary: a single "labels" mapping.
type file struct {
	Labels map[string]string `yaml:"labels"`
}

// Default returns the built-in dictionary. It panics if the embedded file is
// malformed, which can only happen at build time.
func Default() *Dictionary {
	d, err := Parse(ptBR)
	if err != nil {
		panic("vocabulary: embedded pt_br.yaml: " + err.Error())
	}
	return d
}

// Load reads a YAML vocabulary file from path.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary.Load: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary.Load: %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML vocabulary document. Entries with an empty display
// label are rejected because they would produce blank tags.
func Parse(data []byte) (*Dictionary, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("parse: no labels defined")
	}
	for k, v := range f.Labels {
		if v == "" {
			return nil, fmt.Errorf("parse: label %q has an empty translation", k)
		}
	}
	return NewDictionary(f.Labels), nil
}

// Select picks the vocabulary for a classifier. Backends that already answer
// in the target language get Identity; otherwise the file at path is loaded,
// or the built-in dictionary when path is empty.
func Select(path string, localized bool) (Vocabulary, error) {
	switch {
	case localized:
		return Identity{}, nil
	case path != "":
		return Load(path)
	default:
		return Default(), nil
	}
}
