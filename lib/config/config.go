/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config parses the deployer configuration file
package config

import (
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v2"
)

// Config is the deployer configuration file
type Config struct {
	// Deployer configures the deployment backends
	Deployer *Deployer `yaml:"deployer"`
}

// Deployer configures the deployment backends
type Deployer struct {
	// Chef configures the chef deployer
	Chef *Chef `yaml:"chef"`
}

// Chef configures the chef deployer
type Chef struct {
	// Roles is the ordered recipe table
	Roles []RoleRecipes `yaml:"roles"`
	// CookbookRepo optionally overrides the cookbook repository
	CookbookRepo string `yaml:"cookbook-repo,omitempty"`
	// Branch optionally overrides the cookbook branch
	Branch string `yaml:"branch,omitempty"`
	// UpdateRepo controls whether the cookbook branch is updated
	UpdateRepo *bool `yaml:"update-repo,omitempty"`
}

// RoleRecipes lists the recipes applied to the hosts of a role.
// It is written as a single-key mapping:
//
//   - clc: ["eucalyptus::cloud-controller"]
type RoleRecipes struct {
	Role    roles.Role
	Recipes []string
}

// UnmarshalYAML implements yaml.Unmarshaler
func (r *RoleRecipes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var entry map[string][]string
	if err := unmarshal(&entry); err != nil {
		return trace.Wrap(err)
	}
	if len(entry) != 1 {
		return trace.BadParameter("expected a single role per recipe table entry, got %v", len(entry))
	}
	for role, recipes := range entry {
		r.Role = roles.Role(role)
		r.Recipes = recipes
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (r RoleRecipes) MarshalYAML() (interface{}, error) {
	return map[string][]string{string(r.Role): r.Recipes}, nil
}

// Parse parses the configuration file at path
func Parse(path string) (*Config, error) {
	data, err := utils.ReadPath(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	config, err := ParseYAML(data)
	if err != nil {
		return nil, trace.Wrap(err, "failed to parse %v", path)
	}
	return config, nil
}

// ParseYAML parses and validates the configuration
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, trace.BadParameter("invalid configuration: %v", err)
	}
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &config, nil
}

// CheckAndSetDefaults validates the configuration and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if c.Deployer == nil {
		return trace.NotFound("unable to find deployer section of config file")
	}
	if c.Deployer.Chef == nil {
		return trace.NotFound("unable to find chef config in deployer section of config file")
	}
	return trace.Wrap(c.Deployer.Chef.CheckAndSetDefaults())
}

// CheckAndSetDefaults validates the chef configuration and sets defaults
func (c *Chef) CheckAndSetDefaults() error {
	seen := make(map[roles.Role]struct{}, len(c.Roles))
	for _, entry := range c.Roles {
		if !entry.Role.IsValid() || entry.Role == roles.All {
			return trace.BadParameter("unknown role %q in recipe table", entry.Role)
		}
		if _, ok := seen[entry.Role]; ok {
			return trace.BadParameter("role %q is listed more than once in recipe table", entry.Role)
		}
		seen[entry.Role] = struct{}{}
	}
	if c.CookbookRepo == "" {
		c.CookbookRepo = defaults.CookbookRepo
	}
	if c.Branch == "" {
		c.Branch = defaults.CookbookBranch
	}
	if c.UpdateRepo == nil {
		update := true
		c.UpdateRepo = &update
	}
	return nil
}

// Recipes returns the recipes of the specified role
func (c *Chef) Recipes(role roles.Role) ([]string, error) {
	for _, entry := range c.Roles {
		if entry.Role == role {
			return append([]string(nil), entry.Recipes...), nil
		}
	}
	return nil, trace.NotFound("no recipes found for role %v", role)
}
