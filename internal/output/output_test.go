package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"kratio/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func sampleTable() analysis.Table {
	return analysis.Build([]analysis.Unit{"test", "sentence", "test"}, analysis.KindWord)
}

func TestRenderJSON(t *testing.T) {
	var out bytes.Buffer

	err := Renderer{Out: &out, Format: FormatJSON, TopN: 10}.Render(sampleTable())
	require.NoError(t, err)

	var records []KeywordRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "test", records[0].Keyword)
	assert.Equal(t, 2, records[0].Frequency)
	assert.InDelta(t, 66.6667, records[0].Density, 1e-3)
}

func TestRenderCSVHonoursTopN(t *testing.T) {
	var out bytes.Buffer

	err := Renderer{Out: &out, Format: FormatCSV, TopN: 1}.Render(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "keyword,density,frequency", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "test,66.666"))
	assert.True(t, strings.HasSuffix(lines[1], ",2"))
}

func TestRenderTable(t *testing.T) {
	var out bytes.Buffer

	err := Renderer{Out: &out, Format: FormatTable, TopN: 10}.Render(sampleTable())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Keyword")
	assert.Contains(t, text, "Density")
	assert.Contains(t, text, "66.6667")
	assert.Contains(t, text, "sentence")
}

func TestRenderEmptyTable(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatCSV} {
		var out bytes.Buffer
		err := Renderer{Out: &out, Format: format, TopN: 10}.Render(analysis.Build(nil, analysis.KindWord))
		require.NoError(t, err)
		assert.Equal(t, "No data to display for keywords.\n", out.String())
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, format)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, FormatJSON, DefaultFormat(&bytes.Buffer{}))
}

func TestSerializeCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, Serializer{}.Serialize(sampleTable(), path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Keyword", "WordFrequency", "WordDensity"}, rows[0])
	assert.Equal(t, []string{"test", "2"}, rows[1][:2])
	assert.Equal(t, []string{"sentence", "1"}, rows[2][:2])
	density, err := strconv.ParseFloat(rows[1][2], 64)
	require.NoError(t, err)
	assert.InDelta(t, 200.0/3.0, density, 1e-9)
}

func TestSerializeJSONPhrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.JSON")
	source := analysis.Build([]analysis.Unit{"a test sentence"}, analysis.KindPhrase)

	require.NoError(t, Serializer{}.Serialize(source, path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "a test sentence", rows[0]["Noun Chunk"])
	assert.Equal(t, 1.0, rows[0]["NounChunkFrequency"])
	assert.Equal(t, 100.0, rows[0]["NounChunkDensity"])
}

func TestSerializeProto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pb")

	require.NoError(t, Serializer{}.Serialize(sampleTable(), path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	var list structpb.ListValue
	require.NoError(t, proto.Unmarshal(payload, &list))
	require.Len(t, list.GetValues(), 2)
	first := list.GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "test", first["Keyword"].GetStringValue())
	assert.Equal(t, 2.0, first["WordFrequency"].GetNumberValue())
}

func TestSerializeRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := Serializer{}.Serialize(sampleTable(), path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.NoFileExists(t, path)
	assert.False(t, SupportedExtension(path))
	assert.True(t, SupportedExtension("x.Csv"))
}

func TestEnsureOutputDirCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")

	require.NoError(t, EnsureOutputDir(path))

	assert.DirExists(t, filepath.Dir(path))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureOutputDirBlockedByFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := EnsureOutputDir(filepath.Join(blocker, "out.csv"))

	var dirErr *OutputDirectoryError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, blocker, dirErr.Dir)
}

func TestPlotterWritesImages(t *testing.T) {
	dir := t.TempDir()
	plotter := Plotter{TopN: 10}

	for _, name := range []string{"plot.png", "plot.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, plotter.Save(sampleTable(), path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestPlotterSkipsEmptyAndRejectsFormat(t *testing.T) {
	dir := t.TempDir()
	plotter := Plotter{TopN: 10}

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, plotter.Save(analysis.Build(nil, analysis.KindWord), empty))
	assert.NoFileExists(t, empty)

	err := plotter.Save(sampleTable(), filepath.Join(dir, "plot.gif"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, SupportedPlotExtension("a.SVG"))
}
