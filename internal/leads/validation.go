package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// candidateRules carries the constraints checked after normalization.
type candidateRules struct {
	Name    string  `json:"name" validate:"min=2,max=100"`
	Email   string  `json:"email" validate:"email,max=255"`
	Message *string `json:"message" validate:"omitnil,max=1000"`
}

// fieldRule describes how one inbound key is read and normalized before the
// struct constraints run.
type fieldRule struct {
	key       string
	field     string // struct field on candidateRules
	required  bool
	normalize func(string) string
}

var fieldRules = []fieldRule{
	{key: "name", field: "Name", required: true, normalize: strings.TrimSpace},
	{key: "email", field: "Email", required: true, normalize: normalizeEmail},
	{key: "message", field: "Message"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate parses a raw JSON submission and checks every field rule. All
// violations are collected into a single *ValidationError. Validate has no
// side effects.
func Validate(raw []byte) (Candidate, error) {
	obj, issue := decodeObject(raw)
	if issue != nil {
		return Candidate{}, &ValidationError{Issues: []Issue{*issue}}
	}

	values := make(map[string]*string, len(fieldRules))
	perField := make(map[string][]Issue, len(fieldRules))
	var skip []string

	for _, rule := range fieldRules {
		value, issue := readString(obj, rule)
		if issue != nil {
			perField[rule.key] = append(perField[rule.key], *issue)
			skip = append(skip, rule.field)
			continue
		}
		if value != nil && rule.normalize != nil {
			normalized := rule.normalize(*value)
			value = &normalized
		}
		values[rule.key] = value
	}

	rules := candidateRules{
		Name:    deref(values["name"]),
		Email:   deref(values["email"]),
		Message: values["message"],
	}

	if err := validate.StructExcept(rules, skip...); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Candidate{}, fmt.Errorf("leads: validator: %w", err)
		}
		for _, fe := range verrs {
			perField[fe.Field()] = append(perField[fe.Field()], issueFromFieldError(fe))
		}
	}

	var issues []Issue
	for _, rule := range fieldRules {
		issues = append(issues, perField[rule.key]...)
	}
	if len(issues) > 0 {
		return Candidate{}, &ValidationError{Issues: issues}
	}

	return Candidate{
		Name:    rules.Name,
		Email:   rules.Email,
		Message: rules.Message,
	}, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, *Issue) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, &Issue{Code: CodeInvalidJSON, Path: []string{}, Message: "Malformed JSON body"}
	}
	if trimmed[0] != '{' {
		return nil, &Issue{
			Code:    CodeInvalidType,
			Path:    []string{},
			Message: "Expected object, received " + jsonKind(trimmed),
		}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &Issue{Code: CodeInvalidJSON, Path: []string{}, Message: "Malformed JSON body"}
	}
	return obj, nil
}

// readString returns nil for an absent optional field. An explicit null is a
// type mismatch, not an absence.
func readString(obj map[string]json.RawMessage, rule fieldRule) (*string, *Issue) {
	raw, ok := obj[rule.key]
	if !ok {
		if rule.required {
			return nil, &Issue{Code: CodeRequired, Field: rule.key, Path: []string{rule.key}, Message: "Required"}
		}
		return nil, nil
	}

	trimmed := bytes.TrimSpace(raw)
	var s string
	if bytes.Equal(trimmed, []byte("null")) || json.Unmarshal(raw, &s) != nil {
		return nil, &Issue{
			Code:    CodeInvalidType,
			Field:   rule.key,
			Path:    []string{rule.key},
			Message: "Expected string, received " + jsonKind(trimmed),
		}
	}
	return &s, nil
}

func issueFromFieldError(fe validator.FieldError) Issue {
	issue := Issue{Field: fe.Field(), Path: []string{fe.Field()}}
	switch fe.Tag() {
	case "min":
		issue.Code = CodeTooSmall
		issue.Message = fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		issue.Code = CodeTooBig
		issue.Message = fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "email":
		issue.Code = CodeInvalidString
		issue.Message = "Invalid email"
	default:
		issue.Code = CodeInvalidString
		issue.Message = "Failed " + fe.Tag() + " constraint"
	}
	return issue
}

func jsonKind(raw []byte) string {
	if len(raw) == 0 {
		return "undefined"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
