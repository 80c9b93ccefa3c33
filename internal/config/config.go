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

// Package config holds the handful of environment-like options the
// core recognizes from its embedding process: the
// application scope used for host-id lookup, and the well-known
// fabric-service names that trigger JSON-endpoint parsing in the
// resolver. There is no CLI surface and no persisted state; cmd/
// binaries populate a Config from the environment via envconfig and
// merge it over Defaults with mergo.
package config

import (
	"github.com/kelseyhightower/envconfig"

	"dario.cat/mergo"

	"github.com/google/uuid"
)

// Config is the core's entire environment-supplied surface.
type Config struct {
	// SystemServiceApplicationName scopes host-id lookups performed by
	// the routing agent's HostingServices collaborator.
	SystemServiceApplicationName string `envconfig:"SYSTEM_SERVICE_APPLICATION_NAME"`

	// FabricServiceNames are well-known system service names whose
	// location blobs are parsed as a JSON endpoint list before the
	// canonical form.
	FabricServiceNames []string `envconfig:"FABRIC_SERVICE_NAMES"`

	// ResourceManagerServiceName is the dynamically cuid'd resource
	// manager service; it is recognized by name equality rather than a
	// fixed cuid.
	ResourceManagerServiceName string `envconfig:"RESOURCE_MANAGER_SERVICE_NAME"`
}

// Defaults holds the well-known fabric-service names. ResourceManagerServiceName
// is left blank: the resource manager's name is assigned per deployment, not fixed.
var Defaults = Config{
	FabricServiceNames: []string{
		"BackupRestoreService",
		"FaultAnalysisService",
		"UpgradeOrchestrationService",
		"EventStoreService",
	},
}

// Load reads a Config from the process environment under prefix,
// merging any fields it leaves zero-valued from Defaults.
func Load(prefix string) (Config, error) {
	var c Config
	if err := envconfig.Process(prefix, &c); err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&c, Defaults); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Classifier implements resolver.ServiceClassifier against a Config's
// well-known fabric-service names.
type Classifier struct {
	cfg Config
}

// NewClassifier builds a Classifier over cfg.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// IsJSONEndpointService reports whether name is the configured
// resource-manager name or one of the well-known fabric-service names,
// whose location blob should be parsed as a JSON endpoint list first.
// Matching is by name only; cuid is not consulted.
func (c *Classifier) IsJSONEndpointService(cuid uuid.UUID, name string) bool {
	if name == c.cfg.ResourceManagerServiceName && name != "" {
		return true
	}
	for _, known := range c.cfg.FabricServiceNames {
		if name == known {
			return true
		}
	}
	return false
}

// IsEventStoreService reports whether name identifies the
// HTTP-only EventStoreService, which the resolver permits to resolve
// without a tcp endpoint.
func (c *Classifier) IsEventStoreService(cuid uuid.UUID, name string) bool {
	return name == "EventStoreService"
}
