package validation

import (
	"fmt"
	"strings"

	apperrors "candidate-portal/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Err converts an invalid result into a VALIDATION_FAILED error.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return apperrors.NewValidationFailedError(strings.Join(msgs, "; "))
}

const candidateSchema = `{
  "type": "object",
  "required": ["id", "headline"],
  "properties": {
    "id":       {"type": "string", "minLength": 1, "maxLength": 50, "pattern": "^[^,]+$"},
    "headline": {"type": "string", "minLength": 1, "maxLength": 300},
    "sectors":  {"type": ["array", "null"], "items": {"type": "string"}},
    "tags":     {"type": ["array", "null"], "items": {"type": "string"}},
    "resumeUrl": {"type": "string", "pattern": "^(https?://\\S+)?$"},
    "resumeText": {"type": "string"},
    "category": {"type": "string"},
    "title":    {"type": "string"},
    "summary":  {"type": "string"},
    "location": {"type": "string"},
    "relocationPreference": {"type": "string"},
    "notableEmployers": {"type": "string"}
  }
}`

const eventSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "enum": ["agreement", "view", "download", "print"]},
    "data": {"type": ["object", "null"]}
  }
}`

const resumeRequestSchema = `{
  "type": "object",
  "required": ["candidateId", "recipientEmail"],
  "properties": {
    "candidateId":    {"type": "string", "minLength": 1},
    "recipientEmail": {"type": "string", "format": "email"},
    "recipientName":  {"type": "string"},
    "message":        {"type": "string", "maxLength": 2000}
  }
}`

var (
	CandidateSchema     = mustCompile(candidateSchema)
	EventSchema         = mustCompile(eventSchema)
	ResumeRequestSchema = mustCompile(resumeRequestSchema)
)

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return s
}

// Validate checks doc (any JSON-marshalable value) against schema.
func Validate(schema *gojsonschema.Schema, doc interface{}) *ValidationResult {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT"}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	out := &ValidationResult{Valid: false}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}
