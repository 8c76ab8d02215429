// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// job is one {schema, annotation, bej, output} unit of work, whether it
// came from a single-job set of -s/-a/-b/-o flags or one entry of a -c
// batch manifest.
type job struct {
	Schema     string `json:"schema"`
	Annotation string `json:"annotation"`
	Bej        string `json:"bej"`
	Output     string `json:"output,omitempty"`
}

// manifest is the top-level shape of a -c/--config batch file. The C
// original only ever decodes one BEJ stream per process invocation
// (main.c's DecodeArgs_t); this generalizes that to many jobs sharing one
// process, matching the repo's other batch-oriented tooling.
type manifest struct {
	Jobs []job `json:"jobs"`
}

// loadManifest reads and parses a YAML batch manifest. sigs.k8s.io/yaml
// converts YAML to JSON first, then decodes through the struct's json
// tags, so the same job struct serves both single-job flags and batch
// mode without a parallel set of yaml tags.
func loadManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("config %q: no jobs", path)
	}
	return &m, nil
}
