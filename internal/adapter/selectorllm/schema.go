package selectorllm

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed decision_schema.json
var decisionSchemaJSON string

// decisionSchema validates the selector's JSON payload before it is trusted
// as a decision. Compiled once at startup.
var decisionSchema = jsonschema.MustCompileString("decision_schema.json", decisionSchemaJSON)
