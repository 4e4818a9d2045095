// Package prompts describes the ordered prompt/response conversation a
// benchmark tool is driven through.
package prompts

import (
	"fmt"

	"github.com/spboyer/ptsauto/internal/template"
)

// Step pairs an expected prompt with the line sent in reply. A nil Response
// means the prompt is informational: wait for it, send nothing.
type Step struct {
	Expect   Matcher
	Response *string
}

// HasResponse reports whether the step sends anything.
func (s Step) HasResponse() bool {
	return s.Response != nil
}

// Script is an ordered list of steps for one benchmark target.
type Script struct {
	Name   string
	Target string
	Steps  []Step
}

// Builder assembles a Script step by step.
//
//	s := prompts.New("nginx", "pts/nginx").
//		Expect(prompts.Literal("System Test Configuration")).
//		Expect(prompts.MustRegexp(`Connections:.*`)).Send("2").
//		Script()
type Builder struct {
	script Script
}

// New starts a script for target.
func New(name, target string) *Builder {
	return &Builder{script: Script{Name: name, Target: target}}
}

// Expect appends a step waiting for m with no response.
func (b *Builder) Expect(m Matcher) *Builder {
	b.script.Steps = append(b.script.Steps, Step{Expect: m})
	return b
}

// Send sets the response of the most recently added step.
func (b *Builder) Send(response string) *Builder {
	if len(b.script.Steps) == 0 {
		panic("prompts: Send called before Expect")
	}
	b.script.Steps[len(b.script.Steps)-1].Response = &response
	return b
}

// Script returns the assembled script.
func (b *Builder) Script() Script {
	steps := make([]Step, len(b.script.Steps))
	copy(steps, b.script.Steps)
	return Script{Name: b.script.Name, Target: b.script.Target, Steps: steps}
}

// Validate checks that every step has a matcher.
func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script %q has no steps", s.Name)
	}
	for i, st := range s.Steps {
		if st.Expect.IsZero() {
			return fmt.Errorf("script %q step %d: empty prompt matcher", s.Name, i+1)
		}
	}
	return nil
}

// Render resolves template expressions in every response against ctx and
// returns a new script. Matchers are left untouched.
func (s Script) Render(ctx *template.Context) (Script, error) {
	out := Script{Name: s.Name, Target: s.Target, Steps: make([]Step, len(s.Steps))}
	for i, st := range s.Steps {
		out.Steps[i] = Step{Expect: st.Expect}
		if st.Response == nil {
			continue
		}
		r, err := template.Render(*st.Response, ctx)
		if err != nil {
			return Script{}, fmt.Errorf("step %d response: %w", i+1, err)
		}
		out.Steps[i].Response = &r
	}
	return out, nil
}
