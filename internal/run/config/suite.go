// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/om-engine/smokerun/errors"
)

// Suite is the content of a suite manifest.
//
//	programs:
//	  - hello-bin
//	  - 02-sdl-dynamic
//	env:
//	  SDL_VIDEODRIVER: dummy
type Suite struct {
	// Programs is the ordered program list. A present but empty list means
	// no programs, while an absent key leaves the default list in effect.
	Programs []string          `yaml:"programs"`
	Env      map[string]string `yaml:"env"`
}

// ReadSuite reads and parses the suite manifest at path. Unknown keys are
// rejected.
func ReadSuite(path string) (*Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read suite manifest")
	}
	var s Suite
	if err := yaml.UnmarshalStrict(b, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse suite manifest %s", path)
	}
	if s.Programs == nil && hasProgramsKey(b) {
		s.Programs = []string{}
	}
	return &s, nil
}

// hasProgramsKey reports whether the manifest b sets the programs key, even
// to an empty value.
func hasProgramsKey(b []byte) bool {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return false
	}
	_, ok := raw["programs"]
	return ok
}
