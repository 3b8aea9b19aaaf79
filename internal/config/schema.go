package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	procguardschema "github.com/Paintersrp/procguard/schema"
)

// SchemaIssue is one schema violation, located by manifest field such as
// "commands.web.runtime".
type SchemaIssue struct {
	Field   string
	Message string
}

// SchemaError lists every schema violation found in a manifest.
type SchemaError struct {
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema validation failed:")
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, "\n- %s: %s", issue.Field, issue.Message)
	}
	return b.String()
}

var compileManifestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("manifest.v1.json", bytes.NewReader(procguardschema.ManifestV1Schema)); err != nil {
		return nil, fmt.Errorf("add manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.v1.json")
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	return schema, nil
})

// checkSchema validates the raw YAML document. Violations are returned as a
// *SchemaError.
func checkSchema(raw map[string]any) error {
	schema, err := compileManifestSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(schemaValue(raw))
	if err == nil {
		return nil
	}
	var vErr *jsonschema.ValidationError
	if !errors.As(err, &vErr) {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return &SchemaError{Issues: schemaIssues(vErr)}
}

// schemaIssues flattens the validation tree into its leaves. Intermediate
// nodes only repeat that a subschema did not match.
func schemaIssues(root *jsonschema.ValidationError) []SchemaIssue {
	var issues []SchemaIssue
	seen := make(map[SchemaIssue]bool)
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, cause := range e.Causes {
				walk(cause)
			}
			return
		}
		issue := SchemaIssue{Field: schemaField(e.InstanceLocation), Message: e.Message}
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(root)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return issues
}

// schemaField turns a JSON pointer into the dotted field names used by
// Validate, so schema and semantic errors read alike.
func schemaField(ptr string) string {
	var segments []string
	for _, segment := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~"))
	}
	switch {
	case len(segments) == 0:
		return "manifest"
	case segments[0] == "commands" && len(segments) == 2:
		return "commands." + segments[1]
	case segments[0] == "commands" && len(segments) > 2:
		return commandField(segments[1], joinFields(segments[2:]))
	default:
		return joinFields(segments)
	}
}

func joinFields(segments []string) string {
	var b strings.Builder
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			fmt.Fprintf(&b, "[%s]", segment)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(segment)
	}
	return b.String()
}

// schemaValue converts YAML decoded values into the JSON value model the
// validator understands.
func schemaValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = schemaValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = schemaValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = schemaValue(item)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(val))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return json.Number(strconv.FormatFloat(val, 'g', -1, 64))
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}
