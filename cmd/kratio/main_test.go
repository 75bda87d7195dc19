package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kratio/internal/nlp"
	"kratio/internal/output"
	"kratio/internal/pipeline"
	"kratio/internal/textsource"
	"kratio/internal/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldAnnotator treats every whitespace separated field as a noun.
type fieldAnnotator struct{}

func (fieldAnnotator) Annotate(text string) (nlp.Document, error) {
	doc := nlp.Document{}
	for _, field := range strings.Fields(text) {
		token := nlp.Token{Text: field, Lemma: strings.ToLower(field), Tag: "NN"}
		doc.Tokens = append(doc.Tokens, token)
		doc.Chunks = append(doc.Chunks, nlp.Chunk{Text: field, Tokens: []nlp.Token{token}, Root: token})
	}
	return doc, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T) (*application, *syncBuffer, *syncBuffer) {
	t.Helper()
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	app := newApplication(stdout, stderr)
	env := map[string]string{"KRATIO_LOG_FILE": ""}
	app.lookupEnv = func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	app.newAnnotator = func() (nlp.Annotator, error) {
		return fieldAnnotator{}, nil
	}
	app.signals = make(chan os.Signal)
	return app, stdout, stderr
}

func writeText(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunSingleFileJSON(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	path := writeText(t, filepath.Join(t.TempDir(), "notes.txt"), "Test sentence test")

	code := run([]string{path}, app)

	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), `"keyword": "test"`)
	assert.Contains(t, stdout.String(), `"frequency": 2`)
}

func TestRunAcceptsUnderscoreFlags(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	path := writeText(t, filepath.Join(t.TempDir(), "notes.txt"), "alpha beta alpha")

	code := run([]string{path, "--top_n", "1", "--analysis_type", "noun_chunks", "--format=csv"}, app)

	require.Equal(t, exitOK, code)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "keyword,density,frequency", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "alpha,"))
}

func TestRunWritesOutputAndPlot(t *testing.T) {
	app, _, _ := newTestApp(t)
	dir := t.TempDir()
	path := writeText(t, filepath.Join(dir, "notes.txt"), "alpha beta alpha")
	outputPath := filepath.Join(dir, "out", "table.csv")
	plotPath := filepath.Join(dir, "out", "plot.svg")

	code := run([]string{path, "--output", outputPath, "--save-plot", plotPath}, app)

	require.Equal(t, exitOK, code)
	assert.FileExists(t, outputPath)
	assert.FileExists(t, plotPath)
}

func TestRunNoVisualizationSkipsPlot(t *testing.T) {
	app, _, _ := newTestApp(t)
	dir := t.TempDir()
	path := writeText(t, filepath.Join(dir, "notes.txt"), "alpha")
	plotPath := filepath.Join(dir, "plot.png")

	code := run([]string{path, "--save-plot", plotPath, "--no-visualization"}, app)

	require.Equal(t, exitOK, code)
	assert.NoFileExists(t, plotPath)
}

func TestRunDirectoryContinuesPastFailures(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	writeText(t, filepath.Join(dir, "a.txt"), "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte{0xff, 0xfe, 0xfd}, 0o644))
	writeText(t, filepath.Join(dir, "c.md"), "gamma")

	code := run([]string{dir}, app)

	assert.Equal(t, exitReadError, code)
	assert.Contains(t, stdout.String(), "alpha")
	assert.Contains(t, stdout.String(), "gamma")
}

func TestRunReadsConfigFile(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	dir := t.TempDir()
	path := writeText(t, filepath.Join(dir, "notes.txt"), "alpha beta alpha")
	configPath := writeText(t, filepath.Join(dir, "settings.yaml"), "top_n: 1\nformat: csv\n")

	code := run([]string{path, "--config", configPath}, app)

	require.Equal(t, exitOK, code)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := writeText(t, filepath.Join(dir, "notes.txt"), "alpha beta")
	blocker := writeText(t, filepath.Join(dir, "blocker"), "x")

	cases := []struct {
		name  string
		args  []string
		setup func(app *application)
		want  int
	}{
		{name: "missing file", args: []string{filepath.Join(dir, "missing.txt")}, want: exitReadError},
		{name: "unsupported output", args: []string{good, "--output", filepath.Join(dir, "table.xlsx")}, want: exitProcessingError},
		{name: "output directory", args: []string{good, "--output", filepath.Join(blocker, "table.csv")}, want: exitOutputDirectory},
		{name: "watch missing path", args: []string{filepath.Join(dir, "gone"), "--watch"}, want: exitWatchStart},
		{
			name: "engine unavailable",
			args: []string{good},
			setup: func(app *application) {
				app.newAnnotator = func() (nlp.Annotator, error) {
					return nil, errors.New("no model")
				}
			},
			want: exitEngineUnavailable,
		},
		{name: "missing argument", args: nil, want: exitUnclassified},
		{name: "invalid setting", args: []string{good, "--top-n", "0"}, want: exitUnclassified},
		{name: "unknown analysis type", args: []string{good, "--analysis-type", "verbs"}, want: exitUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _ := newTestApp(t)
			if tc.setup != nil {
				tc.setup(app)
			}
			assert.Equal(t, tc.want, run(tc.args, app))
		})
	}
}

func TestVersionFlag(t *testing.T) {
	app, stdout, _ := newTestApp(t)

	code := run([]string{"--version"}, app)

	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "kratio "))
}

func TestWatchModeReanalyzesUntilInterrupted(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	signals := make(chan os.Signal, 1)
	app.signals = signals
	ready := make(chan *watcher.Watcher, 1)
	app.onWatching = func(w *watcher.Watcher) {
		ready <- w
	}
	dir := t.TempDir()
	writeText(t, filepath.Join(dir, "first.txt"), "alpha")

	codes := make(chan int, 1)
	go func() {
		codes <- run([]string{dir, "--watch", "--debounce", "10ms"}, app)
	}()

	select {
	case <-ready:
	case code := <-codes:
		if code == exitWatchStart {
			t.Skip("fsnotify unavailable")
		}
		t.Fatalf("watch exited early with %d", code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch mode did not start")
	}

	writeText(t, filepath.Join(dir, "second.md"), "omega")
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(stdout.String(), "omega") && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Contains(t, stdout.String(), "alpha")
	assert.Contains(t, stdout.String(), "omega")

	signals <- os.Interrupt
	select {
	case code := <-codes:
		assert.Equal(t, exitInterrupted, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch mode did not stop on interrupt")
	}
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&textsource.ReadError{Path: "a", Err: os.ErrNotExist}, exitReadError},
		{&pipeline.ProcessingError{Path: "a", Stage: pipeline.StageAnalyze, Err: errors.New("x")}, exitProcessingError},
		{fmt.Errorf("wrapped: %w", &output.OutputDirectoryError{Dir: "d", Err: errors.New("x")}), exitOutputDirectory},
		{&watcher.PathNotFoundError{Path: "a"}, exitWatchStart},
		{&watchStartError{err: errors.New("x")}, exitWatchStart},
		{&watchFailedError{err: watcher.ErrBackendClosed}, exitWatchFailed},
		{&engineError{err: errors.New("x")}, exitEngineUnavailable},
		{errInterrupted, exitInterrupted},
		{context.Canceled, exitInterrupted},
		{errors.New("other"), exitUnclassified},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exitCodeFor(tc.err), "%v", tc.err)
	}
}
