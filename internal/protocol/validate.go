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

var schemaFiles = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeIssue:   "issue.schema.json",
	TypeRespond: "respond.schema.json",
	TypeCancel:  "command.schema.json",
	TypeStep:    "command.schema.json",
	TypeEndTurn: "command.schema.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		compiled := map[string]*jsonschema.Schema{}
		for typ, name := range schemaFiles {
			if s, ok := compiled[name]; ok {
				compiled[typ] = s
				continue
			}
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			s, err := c.Compile(name)
			if err != nil {
				schemasErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			compiled[name] = s
			compiled[typ] = s
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// ValidateInbound checks a client message against the schema for its type
// and returns its envelope.
func ValidateInbound(raw []byte) (BaseMessage, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	all, err := loadSchemas()
	if err != nil {
		return base, err
	}
	s, ok := all[base.Type]
	if !ok {
		return base, fmt.Errorf("unknown message type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
