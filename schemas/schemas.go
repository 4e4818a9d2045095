// Package schemas embeds the JSON Schemas for ptsauto's YAML files.
package schemas

import _ "embed"

// ScriptSchemaJSON validates prompt script files.
//
//go:embed script.schema.json
var ScriptSchemaJSON string

// ConfigSchemaJSON validates .ptsauto.yaml project configuration.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
