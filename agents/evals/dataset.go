/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is one input to run the agent under test with.
type Case struct {
	Name     string            `yaml:"name"`
	Input    string            `yaml:"input"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Dataset is a named list of cases.
//
//	name: triage
//	cases:
//	  - name: flaky-test
//	    input: Find the flaky test in ci.log
//	    metadata:
//	      owner: infra
type Dataset struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Validate checks that every case has a unique, non-empty name.
func (d Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset name is required")
	}
	seen := make(map[string]struct{}, len(d.Cases))
	for i, c := range d.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d: name is required", i)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("case %d: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// ParseDataset decodes and validates a YAML dataset. Unknown fields are
// rejected so that typos do not silently drop inputs.
func ParseDataset(r io.Reader) (Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Dataset
	if err := dec.Decode(&d); err != nil {
		return Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	d, err := ParseDataset(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// SaveDataset writes d to path as YAML.
func SaveDataset(path string, d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
