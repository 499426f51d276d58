package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://blockmaze.ai/schemas/"

var (
	schemasOnce sync.Once
	schemasErr  error
	levelSchema *jsonschema.Schema
	solveSchema *jsonschema.Schema
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	for _, name := range []string{"level.schema.json", "solve.schema.json"} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(raw)); err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", name, err)
			return
		}
	}
	if levelSchema, schemasErr = c.Compile(schemaBase + "level.schema.json"); schemasErr != nil {
		return
	}
	solveSchema, schemasErr = c.Compile(schemaBase + "solve.schema.json")
}

func validate(which **jsonschema.Schema, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return (*which).Validate(v)
}

// ValidateLevel checks raw level JSON against the embedded level schema.
func ValidateLevel(raw []byte) error { return validate(&levelSchema, raw) }

// ValidateSolve checks a raw SOLVE message, including its level.
func ValidateSolve(raw []byte) error { return validate(&solveSchema, raw) }
