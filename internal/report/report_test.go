package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spboyer/ptsauto/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nginxComposite = `<?xml version="1.0"?>
<PhoronixTestSuite>
  <Generated>
    <Title>15-10-2026-09-30-12-4242-ptsnginx</Title>
  </Generated>
  <Result>
    <Identifier>pts/nginx-3.0.1</Identifier>
    <Title>Requests/sec</Title>
    <AppVersion>1.23.2</AppVersion>
    <Description>nginx throughput</Description>
    <Scale>Requests Per Second</Scale>
    <Data>
      <Entry>
        <Identifier>15-10-2026</Identifier>
        <Value>18234.5</Value>
        <RawString>18201.2:18267.8</RawString>
      </Entry>
    </Data>
  </Result>
</PhoronixTestSuite>
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestExtract_RequestsPerSecond(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", nginxComposite)
	dst := filepath.Join(dir, "out", "summary_result.txt")

	records, err := Extract(src, dst)
	require.NoError(t, err)
	require.Len(t, records, 1)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	want := "Title: Requests/sec\nDescription: nginx throughput\nScale: Requests Per Second\nValue: 18234.5\n" +
		strings.Repeat("-", 40) + "\n"
	assert.Equal(t, want, string(data))
}

func TestParse_MissingFieldsUseSentinel(t *testing.T) {
	xml := `<Root><Result><Title>Latency</Title><Description>p99</Description></Result></Root>`

	records, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		Title:       "Latency",
		Description: "p99",
		Scale:       models.NotAvailable,
		Value:       models.NotAvailable,
	}, records[0])
}

func TestParse_NestedAndOrderedResults(t *testing.T) {
	xml := `<Root>
  <Result><Title>A</Title><Value>1</Value>
    <Result><Title>B</Title><Data><Value>2</Value></Data></Result>
  </Result>
  <Group><Result><Title>C</Title><Value>3</Value></Result></Group>
</Root>`

	records, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, records, 3)

	var titles, values []string
	for _, r := range records {
		titles = append(titles, r.Title)
		values = append(values, r.Value)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
	assert.Equal(t, []string{"1", "2", "3"}, values)
}

func TestParse_TitleMustBeDirectChild(t *testing.T) {
	xml := `<Root><Result><Data><Title>deep</Title><Value>7</Value></Data></Result></Root>`

	records, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.NotAvailable, records[0].Title)
	assert.Equal(t, "7", records[0].Value)
}

func TestParse_NoResults(t *testing.T) {
	records, err := Parse(strings.NewReader(`<Root><Other/></Root>`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtract_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", nginxComposite)
	dst := filepath.Join(dir, "summary.txt")

	_, err := Extract(src, dst)
	require.NoError(t, err)
	first, err := os.ReadFile(dst)
	require.NoError(t, err)

	_, err = Extract(src, dst)
	require.NoError(t, err)
	second, err := os.ReadFile(dst)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtract_OverwritesPreviousSummary(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", nginxComposite)
	dst := writeFile(t, dir, "summary.txt", strings.Repeat("stale\n", 100))

	_, err := Extract(src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestExtract_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "summary.txt")

	_, err := Extract(filepath.Join(dir, "nope.xml"), dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.NoFileExists(t, dst)
}

func TestExtract_SourceIsDirectory(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "summary.txt")

	_, err := Extract(dir, dst)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.NoFileExists(t, dst)
}

func TestExtract_MalformedXML(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", "<Root><Result><Title>broken</Result>")
	dst := filepath.Join(dir, "summary.txt")

	_, err := Extract(src, dst)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSource)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "parsing composite report")
	assert.NoFileExists(t, dst)
}

func TestExtract_TrailingContentIsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unclosed element after root", "<PhoronixTestSuite><Result><Title>A</Title></Result></PhoronixTestSuite><Result><Title>B"},
		{"second root element", "<A><Result><Title>A</Title></Result></A><B><Result><Title>B</Title></Result></B>"},
		{"text after root", "<A><Result><Title>A</Title></Result></A>\ntrailing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "composite.xml", tt.content)
			dst := filepath.Join(dir, "summary.txt")

			records, err := Extract(src, dst)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), "junk after document element")
			assert.Nil(t, records)
			assert.NoFileExists(t, dst)
		})
	}
}

func TestParse_TrailingCommentsAndWhitespaceAreAllowed(t *testing.T) {
	doc := "<A><Result><Title>A</Title></Result></A>\n<!-- generated -->\n<?pi x?>\n\n"
	records, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Title)
}

func TestExtract_Latin1Report(t *testing.T) {
	dir := t.TempDir()
	content := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<PhoronixTestSuite><Result><Title>caf\xe9</Title><Scale>\xb5s</Scale><Value>1.5</Value></Result></PhoronixTestSuite>"
	src := writeFile(t, dir, "composite.xml", content)
	dst := filepath.Join(dir, "summary.txt")

	records, err := Extract(src, dst)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "café", records[0].Title)
	assert.Equal(t, "µs", records[0].Scale)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Title: café\n")
}

func TestParse_UnknownEncoding(t *testing.T) {
	_, err := Parse(strings.NewReader(`<?xml version="1.0" encoding="x-no-such-charset"?><A/>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_EmptyElementIsNotSentinel(t *testing.T) {
	records, err := Parse(strings.NewReader("<A><Result><Title/><Value></Value></Result></A>"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Title)
	assert.Equal(t, "", records[0].Value)
	assert.Equal(t, models.NotAvailable, records[0].Scale)
}

func TestExtract_WriteFailureIsNotMalformed(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", nginxComposite)
	blocker := writeFile(t, dir, "blocker", "")

	_, err := Extract(src, filepath.Join(blocker, "summary.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
	assert.NotErrorIs(t, err, ErrNoSource)
}

func TestExtract_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "composite.xml", "")
	dst := filepath.Join(dir, "summary.txt")

	_, err := Extract(src, dst)
	require.Error(t, err)
	assert.NoFileExists(t, dst)
}

func TestPaths(t *testing.T) {
	name := "15-10-2026-09-30-12-4242-ptsnginx"
	assert.Equal(t,
		filepath.Join("/results", name, "composite.xml"),
		CompositePath("/results", name))
	assert.Equal(t,
		filepath.Join("/results", name, name+"_result.txt"),
		SummaryPath("/results", name))
}

func TestString(t *testing.T) {
	out := String([]Record{{Title: "a", Description: "b", Scale: "c", Value: "d"}, {Title: "e", Description: "f", Scale: "g", Value: "h"}})
	assert.Equal(t, 2, strings.Count(out, strings.Repeat("-", 40)+"\n"))
	assert.True(t, strings.HasPrefix(out, "Title: a\n"))
}
