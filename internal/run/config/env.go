// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/om-engine/smokerun/errors"
)

// readEnvFile reads a YAML file at path containing NAME: VALUE pairs.
func readEnvFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]string)
	if err := yaml.Unmarshal(b, &vars); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return vars, nil
}

// mergeEnvMode specifies the behavior of mergeEnv when it finds duplicated
// entries.
type mergeEnvMode int

const (
	overwriteOnDuplicate mergeEnvMode = iota // newer entries win
	errorOnDuplicate                         // error on duplicated entries
)

// mergeEnv merges newVars into vars, which must not be nil.
// In errorOnDuplicate mode a key present in both is an error, and vars is
// left partially updated.
func mergeEnv(vars, newVars map[string]string, mode mergeEnvMode) error {
	for k, v := range newVars {
		if _, ok := vars[k]; ok && mode == errorOnDuplicate {
			return errors.Errorf("duplicated variable %q", k)
		}
		vars[k] = v
	}
	return nil
}

// readAndMergeEnvFile reads the env file at path and merges it into vars.
func readAndMergeEnvFile(vars map[string]string, path string, mode mergeEnvMode) error {
	newVars, err := readEnvFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read env from %s", path)
	}
	if err := mergeEnv(vars, newVars, mode); err != nil {
		return errors.Wrapf(err, "failed to merge env from %s", path)
	}
	return nil
}
