package prompts

import (
	"fmt"
	"os"
	"strings"

	"github.com/spboyer/ptsauto/internal/validation"
	"gopkg.in/yaml.v3"
)

// scriptFile is the on-disk YAML form of a Script.
type scriptFile struct {
	Name   string     `yaml:"name"`
	Target string     `yaml:"target,omitempty"`
	Steps  []stepFile `yaml:"steps"`
}

type stepFile struct {
	Expect      string  `yaml:"expect,omitempty"`
	ExpectRegex string  `yaml:"expect_regex,omitempty"`
	Send        *string `yaml:"send,omitempty"`
}

// LoadFile reads and validates a script YAML file.
func LoadFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("reading prompt script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates data against the script schema and decodes it.
func Parse(data []byte) (Script, error) {
	if errs := validation.ValidateScriptBytes(data); len(errs) > 0 {
		return Script{}, fmt.Errorf("invalid prompt script:\n  %s", strings.Join(errs, "\n  "))
	}

	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Script{}, fmt.Errorf("parsing prompt script: %w", err)
	}

	s := Script{Name: f.Name, Target: f.Target, Steps: make([]Step, 0, len(f.Steps))}
	for i, sf := range f.Steps {
		var m Matcher
		var err error
		switch {
		case sf.ExpectRegex != "":
			m, err = Regexp(sf.ExpectRegex)
			if err != nil {
				return Script{}, fmt.Errorf("step %d: %w", i+1, err)
			}
		default:
			m = Literal(sf.Expect)
		}
		s.Steps = append(s.Steps, Step{Expect: m, Response: sf.Send})
	}

	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// Marshal encodes s in the YAML form accepted by Parse.
func Marshal(s Script) ([]byte, error) {
	f := scriptFile{Name: s.Name, Target: s.Target, Steps: make([]stepFile, 0, len(s.Steps))}
	for _, st := range s.Steps {
		sf := stepFile{Send: st.Response}
		if st.Expect.IsPattern() {
			sf.ExpectRegex = st.Expect.String()
		} else {
			sf.Expect = st.Expect.String()
		}
		f.Steps = append(f.Steps, sf)
	}
	return yaml.Marshal(&f)
}
