package v1

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
)

const triggerRequestSchemaURL = "https://catalog-sync.local/schemas/trigger_request.json"

//go:embed schemas/trigger_request.json
var triggerRequestSchemaJSON []byte

var (
	triggerSchemaOnce sync.Once
	triggerSchema     *jsonschema.Schema
	triggerSchemaErr  error
)

// compiledTriggerSchema compiles the embedded request schema once
func compiledTriggerSchema() (*jsonschema.Schema, error) {
	triggerSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(triggerRequestSchemaJSON))
		if err != nil {
			triggerSchemaErr = fmt.Errorf("failed to parse trigger request schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(triggerRequestSchemaURL, doc); err != nil {
			triggerSchemaErr = fmt.Errorf("failed to add trigger request schema: %w", err)
			return
		}
		triggerSchema, triggerSchemaErr = c.Compile(triggerRequestSchemaURL)
	})
	return triggerSchema, triggerSchemaErr
}

// DecodeTriggerRequest validates body against the request schema and decodes it
func DecodeTriggerRequest(body []byte) (pkgsync.Request, error) {
	schema, err := compiledTriggerSchema()
	if err != nil {
		return pkgsync.Request{}, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return pkgsync.Request{}, fmt.Errorf("request body is not valid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return pkgsync.Request{}, fmt.Errorf("request body does not match schema: %w", err)
	}

	var req pkgsync.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return pkgsync.Request{}, fmt.Errorf("failed to decode request body: %w", err)
	}
	return req, nil
}
