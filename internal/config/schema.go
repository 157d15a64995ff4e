package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchemaJSON renders the JSON schema for the runner config, used by
// editors to validate config files.
func GenerateSchemaJSON() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.RequiredFromJSONSchemaTags = true

	schema := r.Reflect(&Config{})
	schema.Title = "argo-runner-config"
	schema.Description = "Configuration schema for the trading runner"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
