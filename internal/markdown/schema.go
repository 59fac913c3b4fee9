package markdown

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thelyad/postpress/pkg/interfaces"
)

// ErrFrontMatterValidation marks frontmatter payloads rejected by the
// configured JSON schema.
var ErrFrontMatterValidation = errors.New("frontmatter validation failed")

// SchemaIssue captures a single frontmatter validation failure.
type SchemaIssue struct {
	Location string
	Message  string
}

// FrontMatterValidationError surfaces schema issues with post context.
type FrontMatterValidationError struct {
	Path   string
	Issues []SchemaIssue
	Cause  error
}

func (e *FrontMatterValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Path, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Path, ErrFrontMatterValidation)
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(parts, "; "))
}

func (e *FrontMatterValidationError) Unwrap() error {
	return ErrFrontMatterValidation
}

// SchemaValidator validates post frontmatter against a compiled JSON schema.
// A nil validator accepts every payload.
type SchemaValidator struct {
	compiled *jsonschema.Schema
}

// LoadSchemaFile compiles the JSON schema stored at path. An empty path yields
// a nil validator so callers can wire validation unconditionally.
func LoadSchemaFile(path string) (*SchemaValidator, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontmatter schema read %s: %w", path, err)
	}
	return CompileSchema(data)
}

// CompileSchema compiles raw JSON schema bytes into a validator.
func CompileSchema(raw []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("frontmatter.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("frontmatter schema: %w", err)
	}
	compiled, err := compiler.Compile("frontmatter.json")
	if err != nil {
		return nil, fmt.Errorf("frontmatter schema: %w", err)
	}
	return &SchemaValidator{compiled: compiled}, nil
}

// Validate checks a post's frontmatter against the schema. Validation runs on
// the raw map so custom keys participate as well.
func (v *SchemaValidator) Validate(post *interfaces.Post) error {
	if v == nil || v.compiled == nil || post == nil {
		return nil
	}

	payload, err := normalizePayload(post.FrontMatter.Raw)
	if err != nil {
		return &FrontMatterValidationError{Path: post.FilePath, Cause: err}
	}

	if err := v.compiled.Validate(payload); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return &FrontMatterValidationError{
				Path:   post.FilePath,
				Issues: collectSchemaIssues(validationErr),
				Cause:  err,
			}
		}
		return &FrontMatterValidationError{Path: post.FilePath, Cause: err}
	}
	return nil
}

// normalizePayload round-trips the frontmatter map through JSON so values use
// the types the schema library expects (e.g. time.Time becomes a string).
func normalizePayload(raw map[string]any) (any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func collectSchemaIssues(err *jsonschema.ValidationError) []SchemaIssue {
	if err == nil {
		return nil
	}
	issues := []SchemaIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, SchemaIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
