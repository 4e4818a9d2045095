// Package report extracts benchmark results from a composite XML report
// into a flat text summary.
package report

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spboyer/ptsauto/internal/models"
	"golang.org/x/text/encoding/ianaindex"
)

// Record is one extracted result.
type Record = models.ResultRecord

var (
	// ErrNoSource is returned when the composite report does not exist.
	ErrNoSource = errors.New("composite report not found")

	// ErrMalformed wraps every error caused by the report's content.
	ErrMalformed = errors.New("parsing composite report")
)

const separator = "----------------------------------------"

// node is a schema-less XML element.
type node struct {
	XMLName  xml.Name
	Text     string `xml:",chardata"`
	Children []node `xml:",any"`
}

func (n *node) child(name string) *node {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

// descendant returns the first element named name below n in document order.
func (n *node) descendant(name string) *node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Local == name {
			return c
		}
		if d := c.descendant(name); d != nil {
			return d
		}
	}
	return nil
}

// collect appends every element named name below n in document order.
func (n *node) collect(name string, out []*node) []*node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = c.collect(name, out)
	}
	return out
}

// textOr returns the character data of n, or N/A when n is missing. An
// element that is present but empty yields "", never N/A or a null marker,
// so only absent fields read as not available.
func textOr(n *node) string {
	if n == nil {
		return models.NotAvailable
	}
	return n.Text
}

// Parse reads a composite report and returns one record per Result element,
// nested ones included. Title, Description and Scale come from direct
// children, Value from the first Value anywhere inside the Result.
func Parse(r io.Reader) ([]Record, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := checkTrailing(dec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	results := root.collect("Result", nil)
	records := make([]Record, 0, len(results))
	for _, res := range results {
		records = append(records, Record{
			Title:       textOr(res.child("Title")),
			Description: textOr(res.child("Description")),
			Scale:       textOr(res.child("Scale")),
			Value:       textOr(res.descendant("Value")),
		})
	}
	return records, nil
}

// checkTrailing consumes the rest of the document. Only comments,
// processing instructions and whitespace may follow the root element.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("line %d: junk after document element: <%s>", inputLine(dec), t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("line %d: junk after document element", inputLine(dec))
			}
		}
	}
}

func inputLine(dec *xml.Decoder) int {
	line, _ := dec.InputPos()
	return line
}

// charsetReader decodes reports that declare a non-UTF-8 encoding, such as
// ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Format writes records in the summary text format.
func Format(w io.Writer, records []Record) error {
	for _, rec := range records {
		if _, err := fmt.Fprintf(w, "Title: %s\nDescription: %s\nScale: %s\nValue: %s\n%s\n",
			rec.Title, rec.Description, rec.Scale, rec.Value, separator); err != nil {
			return err
		}
	}
	return nil
}

// Extract parses the report at xmlPath and writes its summary to txtPath,
// replacing any previous content. Nothing is written unless the report
// exists and parses.
func Extract(xmlPath, txtPath string) ([]Record, error) {
	info, err := os.Stat(xmlPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, xmlPath)
	}

	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("opening composite report: %w", err)
	}
	defer f.Close() //nolint:errcheck

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", xmlPath, err)
	}

	var buf bytes.Buffer
	if err := Format(&buf, records); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(txtPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating summary directory: %w", err)
	}
	if err := os.WriteFile(txtPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	return records, nil
}

// SummaryPath returns where the summary for resultName is written below
// root: "<root>/<name>/<name>_result.txt".
func SummaryPath(root, resultName string) string {
	return filepath.Join(root, resultName, resultName+"_result.txt")
}

// CompositePath returns where the benchmark tool saves the composite report
// for resultName below root.
func CompositePath(root, resultName string) string {
	return filepath.Join(root, resultName, "composite.xml")
}

// String renders records in the summary format.
func String(records []Record) string {
	var sb strings.Builder
	_ = Format(&sb, records)
	return sb.String()
}
