// Package template renders prompt responses that depend on per-run values.
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Context holds all variables available for template resolution.
type Context struct {
	// Target is the benchmark being driven, e.g. "pts/nginx".
	Target string
	// ResultName is the dashed, slash-free result directory name.
	ResultName string
	// RunStamp is the underscore form of the run identifier for Target.
	RunStamp string
	// Kernel is the running kernel release.
	Kernel    string
	Timestamp string

	// User-defined variables (from the vars section of the config)
	Vars map[string]string
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.ResultName}}, {{.Vars.myvar}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}
