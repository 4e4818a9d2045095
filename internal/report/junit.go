package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spboyer/ptsauto/internal/models"
)

// JUnit XML schema types, for CI systems that chart benchmark runs.

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one benchmark run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one extracted result, or to the run itself when it
// failed.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure marks a run that finished without a usable report.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError marks a run that could not be driven.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a run outcome to JUnit XML. Every record becomes a
// passing test case; a run that did not succeed adds a failing one.
func ConvertToJUnit(outcome *models.RunOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      outcome.Setup.Target,
		Time:      durationSec,
		Timestamp: outcome.StartedAt.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "result_name", Value: outcome.ResultName},
			{Name: "tool", Value: outcome.Setup.Tool},
			{Name: "strategy", Value: outcome.Setup.Strategy},
			{Name: "exit_code", Value: fmt.Sprint(outcome.ExitCode)},
		},
	}

	for _, rec := range outcome.Records {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      recordName(rec),
			Classname: outcome.Setup.Target,
			SystemOut: fmt.Sprintf("%s %s", rec.Value, rec.Scale),
		})
	}

	if tc, ok := runCase(outcome); ok {
		tc.Time = durationSec
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, tc := range suite.TestCases {
		switch {
		case tc.Failure != nil:
			suite.Failures++
		case tc.Error != nil:
			suite.Errors++
		}
	}
	suite.Tests = len(suite.TestCases)

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func recordName(rec Record) string {
	if rec.Description == "" || rec.Description == models.NotAvailable {
		return rec.Title
	}
	return fmt.Sprintf("%s (%s)", rec.Title, rec.Description)
}

func runCase(outcome *models.RunOutcome) (JUnitTestCase, bool) {
	tc := JUnitTestCase{Name: outcome.ResultName, Classname: outcome.Setup.Target}

	switch outcome.Status {
	case models.StatusTimedOut:
		tc.Failure = &JUnitFailure{Message: outcome.ErrorMsg, Type: "Timeout"}
	case models.StatusNoReport:
		tc.Failure = &JUnitFailure{Message: "no composite report was written", Type: "MissingReport", Body: outcome.Paths.Report}
	case models.StatusFailed:
		tc.Error = &JUnitError{Message: outcome.ErrorMsg, Type: "ExecutionError"}
	default:
		if outcome.ExtractError == "" {
			return JUnitTestCase{}, false
		}
		tc.Error = &JUnitError{Message: outcome.ExtractError, Type: "ExtractError", Body: outcome.Paths.Report}
	}
	return tc, true
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.RunOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating JUnit directory: %w", err)
		}
	}
	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0o644)
}
