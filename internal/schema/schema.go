// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package schema reflects JSON Schemas from the request documents accepted
// by StockCtrl and validates JSON and YAML input against them.
package schema

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// BaseID prefixes the $id of every generated schema.
const BaseID = "https://stockctrl.dev/schemas/"

// Document names.
const (
	Signup      = "signup"
	AdminSignup = "admin-signup"
	Login       = "login"
	Seed        = "seed-admins"
)

type document struct {
	target      any
	title       string
	description string
}

var documents = map[string]document{
	Signup:      {&SignupRequest{}, "StockCtrl Profile Signup", "Body of POST /authentication/signup"},
	AdminSignup: {&AdminSignupRequest{}, "StockCtrl Admin Signup", "Body of POST /admin/create"},
	Login:       {&LoginRequest{}, "StockCtrl Login", "Body of the login and admin auth_token routes"},
	Seed:        {&SeedFile{}, "StockCtrl Admin Seed File", "YAML file read by stockctrl seed-admins"},
}

// Names returns the known document names in sorted order.
func Names() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Generate returns the indented JSON Schema for the named document.
func Generate(name string) ([]byte, error) {
	doc, ok := documents[name]
	if !ok {
		return nil, oops.Code("SCHEMA_UNKNOWN").With("name", name).Errorf("unknown schema %q", name)
	}

	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(doc.target)
	s.ID = jsonschema.ID(BaseID + name + ".schema.json")
	s.Title = doc.title
	s.Description = doc.description

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_MARSHAL_FAILED").With("name", name).Wrap(err)
	}
	return data, nil
}

// Validator validates input against the compiled document schemas. The
// zero value is not usable; use NewValidator.
type Validator struct {
	once     sync.Once
	err      error
	compiled map[string]*jschema.Schema
}

// NewValidator returns a Validator that compiles schemas on first use.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) compile() error {
	v.once.Do(func() {
		c := jschema.NewCompiler()
		c.AssertFormat()
		v.compiled = make(map[string]*jschema.Schema, len(documents))
		for _, name := range Names() {
			data, err := Generate(name)
			if err != nil {
				v.err = err
				return
			}
			raw, err := jschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("name", name).Wrap(err)
				return
			}
			url := BaseID + name + ".schema.json"
			if err := c.AddResource(url, raw); err != nil {
				v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("name", name).Wrap(err)
				return
			}
			sch, err := c.Compile(url)
			if err != nil {
				v.err = oops.Code("SCHEMA_COMPILE_FAILED").With("name", name).Wrap(err)
				return
			}
			v.compiled[name] = sch
		}
	})
	return v.err
}

// ValidateJSON checks a JSON document and decodes it into out.
func (v *Validator) ValidateJSON(name string, data []byte, out any) error {
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return oops.Code("REQUEST_MALFORMED").With("schema", name).Wrap(&InputError{Message: "request body must be valid JSON"})
	}
	if err := v.validate(name, inst); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return oops.Code("REQUEST_MALFORMED").With("schema", name).Wrap(&InputError{Message: err.Error()})
	}
	return nil
}

// ValidateYAML checks a YAML document and decodes it into out.
func (v *Validator) ValidateYAML(name string, data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code("REQUEST_MALFORMED").With("schema", name).Wrap(&InputError{Message: "document is empty"})
	}

	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return oops.Code("REQUEST_MALFORMED").With("schema", name).Wrap(&InputError{Message: "invalid YAML: " + err.Error()})
	}
	if err := v.validate(name, toJSONTypes(node)); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return oops.Code("REQUEST_MALFORMED").With("schema", name).Wrap(&InputError{Message: err.Error()})
	}
	return nil
}

func (v *Validator) validate(name string, inst any) error {
	if err := v.compile(); err != nil {
		return err
	}
	sch, ok := v.compiled[name]
	if !ok {
		return oops.Code("SCHEMA_UNKNOWN").With("name", name).Errorf("unknown schema %q", name)
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("REQUEST_INVALID").With("schema", name).Wrap(&InputError{Message: formatError(err)})
	}
	return nil
}

// toJSONTypes rewrites YAML decoded values into the shapes the validator
// accepts.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(val))
	default:
		return val
	}
}

// formatError flattens a validation failure into one line of
// "at '<location>': <reason>" entries.
func formatError(err error) string {
	var msgs []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "- "); ok {
			msgs = append(msgs, after)
		}
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}
