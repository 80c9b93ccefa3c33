// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package build holds version information stamped in at link time,
// printed by the routingagent and routingagentproxy version commands.
package build

import (
	"gopkg.in/yaml.v3"
)

// Info is the build information for a running binary.
type Info struct {
	Branch  string `yaml:"branch,omitempty"`
	Sha     string `yaml:"sha,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// Branch is the git branch set at build time via -ldflags.
var Branch string

// Sha is the git commit set at build time via -ldflags.
var Sha string

// Version is the release version set at build time via -ldflags.
var Version string

// Print renders the current build information as YAML.
func Print() string {
	info := &Info{Branch, Sha, Version}
	out, err := yaml.Marshal(info)
	if err != nil {
		panic(err)
	}
	return string(out)
}
