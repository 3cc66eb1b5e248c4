// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package schema

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/stockctrl/stockctrl/internal/auth"
)

// Username is a username as submitted by a client. JSON numbers are
// accepted and kept in their literal text form.
type Username string

// JSONSchema allows either a string or a number.
func (Username) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "number"},
		},
	}
}

// UnmarshalJSON accepts a JSON string or number.
func (u *Username) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return oops.Code("USERNAME_DECODE_FAILED").Wrap(err)
		}
		*u = Username(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return oops.Code("USERNAME_DECODE_FAILED").Wrap(err)
	}
	*u = Username(n.String())
	return nil
}

// UnmarshalYAML accepts any YAML scalar.
func (u *Username) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return oops.Code("USERNAME_DECODE_FAILED").
			With("line", node.Line).
			Errorf("username must be a scalar")
	}
	*u = Username(node.Value)
	return nil
}

func (u Username) String() string {
	return string(u)
}

// OrganizationInput is the organization block of a profile signup.
type OrganizationInput struct {
	Name     string  `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Type     string  `json:"type" yaml:"type" jsonschema:"minLength=1"`
	Industry string  `json:"industry" yaml:"industry" jsonschema:"minLength=1"`
	Logo     *string `json:"logo,omitempty" yaml:"logo,omitempty"`
}

// SignupRequest is the body of a profile signup.
type SignupRequest struct {
	Username     Username          `json:"username" yaml:"username"`
	Email        string            `json:"email" yaml:"email" jsonschema:"minLength=1"`
	Password     string            `json:"password" yaml:"password"`
	Name         string            `json:"name" yaml:"name" jsonschema:"minLength=1"`
	PhoneNumber  *string           `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	Organization OrganizationInput `json:"organization" yaml:"organization"`
}

// Candidate converts the request for the account directory.
func (r SignupRequest) Candidate() auth.AccountCandidate {
	org := auth.Organization(r.Organization)
	return auth.AccountCandidate{
		Kind:         auth.AccountKindProfile,
		Username:     r.Username,
		Email:        r.Email,
		Password:     r.Password,
		Name:         r.Name,
		PhoneNumber:  r.PhoneNumber,
		Organization: &org,
	}
}

// AdminSignupRequest is the body of an admin account creation.
type AdminSignupRequest struct {
	Username    Username `json:"username" yaml:"username"`
	Email       string   `json:"email" yaml:"email" jsonschema:"format=email"`
	Password    string   `json:"password" yaml:"password" jsonschema:"minLength=8,maxLength=128"`
	Name        string   `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=100"`
	PhoneNumber *string  `json:"phone_number,omitempty" yaml:"phone_number,omitempty" jsonschema:"minLength=10,maxLength=100"`
}

// Candidate converts the request for the account directory. Admin
// usernames are lowercased before policy checks.
func (r AdminSignupRequest) Candidate() auth.AccountCandidate {
	return auth.AccountCandidate{
		Kind:        auth.AccountKindAdmin,
		Username:    lowerUsername(r.Username),
		Email:       r.Email,
		Password:    r.Password,
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
	}
}

// LoginRequest is the body of a profile login or admin token request.
type LoginRequest struct {
	Username Username `json:"username" yaml:"username"`
	Password string   `json:"password" yaml:"password"`
}

// SeedFile is the document read by seed-admins.
type SeedFile struct {
	Admins []AdminSignupRequest `json:"admins" yaml:"admins" jsonschema:"minItems=1"`
}

// InputError describes input rejected before it reached the account
// services. Message is safe to return to the client.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func lowerUsername(u Username) Username {
	return Username(strings.ToLower(string(u)))
}
