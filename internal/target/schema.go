package target

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/targets.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// ValidationResult is the outcome of checking a target table document.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is one leaf schema failure.
type ValidationIssue struct {
	// Path is the JSON pointer of the failing value, e.g. "/targets/0/os".
	Path string
	// Target is the "os/arch" key of the entry Path falls in, if any.
	Target  string
	Message string
	Keyword string
}

func (i ValidationIssue) String() string {
	switch {
	case i.Target != "":
		return "target " + i.Target + " (" + i.Path + "): " + i.Message
	case i.Path != "":
		return i.Path + ": " + i.Message
	default:
		return i.Message
	}
}

// SchemaError is returned by LoadTable when the document parses but does
// not satisfy the target table schema.
type SchemaError struct {
	Issues []ValidationIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("target table has %d validation issue(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("targets.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("targets.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate validates raw YAML bytes against the target table schema.
// The error return is for parse or schema compilation failures.
// Validation issues are returned in the ValidationResult.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees json.Number values.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}

	issues := leafIssues(ve)
	if len(issues) == 0 {
		issues = []ValidationIssue{{Message: ve.Error()}}
	}
	labelTargets(raw, issues)
	return &ValidationResult{Issues: issues}, nil
}

// leafIssues flattens the cause tree into distinct leaf failures.
func leafIssues(root *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[ValidationIssue]bool)

	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		for _, cause := range ve.Causes {
			walk(cause)
		}
		if len(ve.Causes) > 0 || ve.ErrorKind == nil {
			return
		}
		kw := ve.ErrorKind.KeywordPath()
		if len(kw) == 0 {
			return
		}
		issue := ValidationIssue{
			Keyword: kw[len(kw)-1],
			Message: ve.ErrorKind.LocalizedString(printer),
		}
		// Container keywords carry no detail of their own.
		if issue.Keyword == "allOf" || issue.Keyword == "$ref" {
			return
		}
		if len(ve.InstanceLocation) > 0 {
			issue.Path = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(root)
	return issues
}

// labelTargets sets Target on issues that point inside a targets entry,
// using whatever os and arch that entry declares.
func labelTargets(raw interface{}, issues []ValidationIssue) {
	doc, _ := raw.(map[string]interface{})
	entries, _ := doc["targets"].([]interface{})

	for i := range issues {
		rest, ok := strings.CutPrefix(issues[i].Path, "/targets/")
		if !ok {
			continue
		}
		idx, _, _ := strings.Cut(rest, "/")
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 || n >= len(entries) {
			continue
		}
		entry, _ := entries[n].(map[string]interface{})
		issues[i].Target = field(entry, "os") + "/" + field(entry, "arch")
	}
}

func field(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return "?"
}
