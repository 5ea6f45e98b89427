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

package schema

import (
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema"
)

var schema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft6
	if err := compiler.AddResource("schema.json", strings.NewReader(environmentSchema)); err != nil {
		log.Fatalf("Failed to add schema resource: %v.", err)
	}

	var err error
	schema, err = compiler.Compile("schema.json")
	if err != nil {
		log.Fatalf("Failed to parse schema: %v.", err)
	}
}

// environmentSchema only describes the shape of the sections the deployer
// reads. Semantic requirements (mandatory roles, cluster completeness) are
// enforced by the role resolver so they can be reported with a field path.
const environmentSchema = `
{
  "$schema": "http://json-schema.org/draft-06/schema#",
  "description": "Deployment Environment Schema",
  "$ref": "#/definitions/Environment",
  "definitions": {
    "Environment": {
      "type": "object",
      "required": ["name", "default_attributes"],
      "properties": {
        "name": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
        "description": {"type": "string"},
        "default_attributes": {"$ref": "#/definitions/Attributes"}
      }
    },
    "Attributes": {
      "type": "object",
      "properties": {
        "eucalyptus": {"$ref": "#/definitions/Eucalyptus"},
        "riakcs_cluster": {
          "type": "object",
          "required": ["topology"],
          "properties": {
            "topology": {
              "type": "object",
              "properties": {
                "head": {
                  "type": ["object", "null"],
                  "properties": {"ipaddr": {"type": "string"}}
                },
                "nodes": {"type": "array", "items": {"type": "string"}},
                "load_balancer": {"type": "string"}
              }
            }
          }
        },
        "ceph": {
          "type": "object",
          "required": ["topology"],
          "properties": {
            "topology": {
              "type": "object",
              "properties": {
                "mons": {"type": "array", "items": {"$ref": "#/definitions/CephHost"}},
                "osds": {"type": "array", "items": {"$ref": "#/definitions/CephHost"}}
              }
            }
          }
        },
        "midokura": {
          "type": "object",
          "properties": {
            "zookeepers": {"type": "array", "items": {"type": "string"}},
            "cassandras": {"type": "array", "items": {"type": "string"}},
            "midolman-host-mapping": {
              "type": "object",
              "additionalProperties": {"type": "string"}
            }
          }
        }
      }
    },
    "Eucalyptus": {
      "type": "object",
      "properties": {
        "topology": {
          "type": "object",
          "properties": {
            "clc-1": {"type": "string"},
            "user-facing": {"type": "array", "items": {"type": "string"}},
            "console": {"type": "array", "items": {"type": "string"}},
            "walrus": {"type": "string"},
            "riakcs": {"type": "object"},
            "clusters": {
              "type": "object",
              "additionalProperties": {
                "type": "object",
                "properties": {
                  "cc-1": {"type": "string"},
                  "sc-1": {"type": "string"},
                  "nodes": {
                    "oneOf": [
                      {"type": "string"},
                      {"type": "array", "items": {"type": "string"}}
                    ]
                  }
                }
              }
            }
          }
        },
        "network": {
          "type": "object",
          "properties": {
            "mode": {"type": "string"},
            "config-json": {"type": "object"}
          }
        }
      }
    },
    "CephHost": {
      "type": "object",
      "required": ["ipaddr"],
      "properties": {
        "ipaddr": {"type": "string"},
        "hostname": {"type": "string"},
        "init": {"type": "boolean"}
      }
    }
  }
}`
