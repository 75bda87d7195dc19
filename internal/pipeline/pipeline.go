package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"kratio/internal/analysis"
	"kratio/internal/event"
	"kratio/internal/logging"
	"kratio/internal/metrics"
	"kratio/internal/output"
	"kratio/internal/textsource"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "kratio/pipeline"

var ErrNilAnalyzer = errors.New("analyzer is nil")

// Options wires an Orchestrator. Only Analyzer is required.
type Options struct {
	Analyzer   analysis.Analyzer
	Source     textsource.Source
	Extensions textsource.ExtensionSet
	// Renderer prints each table; nil prints nothing.
	Renderer *output.Renderer
	// Out receives the per-file heading in batch runs.
	Out         io.Writer
	Serializer  output.Serializer
	Plotter     output.Plotter
	OutputPath  string
	PlotPath    string
	DisablePlot bool
	Workers     int
	Logger      *logging.Logger
	Metrics     *metrics.Registry
	Bus         *event.Bus[Result]
	Tracer      trace.Tracer
	Now         func() time.Time
}

// Orchestrator runs read, analyze and output for files and directories.
type Orchestrator struct {
	options Options
	logger  *logging.Logger
	tracer  trace.Tracer
}

func New(options Options) (*Orchestrator, error) {
	if options.Analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if options.Source == nil {
		options.Source = textsource.FileSource{}
	}
	if options.Extensions == nil {
		options.Extensions = textsource.NewExtensionSet(textsource.DefaultExtensions...)
	}
	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	logger := options.Logger.With(map[string]string{"component": "pipeline"})
	if options.Serializer.Logger == nil {
		options.Serializer.Logger = logger
	}
	if options.Plotter.Logger == nil {
		options.Plotter.Logger = logger
	}
	return &Orchestrator{options: options, logger: logger, tracer: tracer}, nil
}

// Run analyzes path as a directory batch or a single file.
func (o *Orchestrator) Run(ctx context.Context, path string) error {
	if textsource.IsDirectory(path) {
		report, err := o.RunDirectory(ctx, path)
		if err != nil {
			return err
		}
		return report.Err()
	}
	_, err := o.RunFile(ctx, path)
	return err
}

// RunFile reads, analyzes and emits one file using the configured output paths.
func (o *Orchestrator) RunFile(ctx context.Context, path string) (Result, error) {
	result, err := o.analyze(ctx, path)
	if err != nil {
		return Result{}, err
	}
	result.OutputPath = o.options.OutputPath
	result.PlotPath = o.plotPath(o.options.PlotPath)
	if err := o.emit(ctx, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// RunDirectory analyzes every supported file below dir with bounded
// concurrency, then emits results in scan order. A failing file is recorded
// in the report and does not stop the others.
func (o *Orchestrator) RunDirectory(ctx context.Context, dir string) (BatchReport, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.run_directory",
		trace.WithAttributes(attribute.String("kratio.path", dir)))
	defer span.End()

	files, err := textsource.Scan(dir, o.options.Extensions)
	if err != nil {
		failSpan(span, err)
		return BatchReport{}, err
	}
	span.SetAttributes(attribute.Int("kratio.files", len(files)))
	report := BatchReport{Root: dir}
	if len(files) == 0 {
		o.logger.Warn("no supported files found", map[string]string{
			"path":       dir,
			"extensions": o.options.Extensions.String(),
		})
		return report, nil
	}

	results := make([]Result, len(files))
	errs := make([]error, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.options.Workers)
	for index, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				errs[index] = err
				return nil
			}
			results[index], errs[index] = o.analyze(groupCtx, file)
			return nil
		})
	}
	_ = group.Wait()

	for index, file := range files {
		err := errs[index]
		if err == nil {
			result := results[index]
			result.OutputPath = o.derivedPath(o.options.OutputPath, dir, file)
			result.PlotPath = o.plotPath(o.derivedPath(o.options.PlotPath, dir, file))
			o.heading(file)
			err = o.emit(ctx, &result)
			if err == nil {
				report.Results = append(report.Results, result)
				continue
			}
		}
		report.Failures = append(report.Failures, Failure{Path: file, Err: err})
		o.logger.Error("analysis failed", map[string]string{
			"path":  file,
			"error": err.Error(),
		})
	}
	o.logger.Info("batch complete", map[string]string{
		"path":      dir,
		"succeeded": strconv.Itoa(len(report.Results)),
		"failed":    strconv.Itoa(len(report.Failures)),
	})
	return report, nil
}

// HandleChange re-analyzes a changed file. Errors are logged, never returned.
func (o *Orchestrator) HandleChange(path string) {
	o.handleChange("", path)
}

// ChangeHandler returns a handler for changes below root. When root is a
// directory, output paths get the changed file's name inserted as in
// RunDirectory.
func (o *Orchestrator) ChangeHandler(root string) func(path string) {
	if !textsource.IsDirectory(root) {
		root = ""
	}
	return func(path string) {
		o.handleChange(root, path)
	}
}

func (o *Orchestrator) handleChange(root, path string) {
	o.logger.Info("change detected, re-analyzing", map[string]string{"path": path})
	ctx := context.Background()
	result, err := o.analyze(ctx, path)
	if err == nil {
		if root == "" {
			result.OutputPath = o.options.OutputPath
			result.PlotPath = o.plotPath(o.options.PlotPath)
		} else {
			result.OutputPath = o.derivedPath(o.options.OutputPath, root, path)
			result.PlotPath = o.plotPath(o.derivedPath(o.options.PlotPath, root, path))
			o.heading(path)
		}
		err = o.emit(ctx, &result)
	}
	if err != nil {
		o.logger.Error("re-analysis failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) analyze(ctx context.Context, path string) (Result, error) {
	kind := o.options.Analyzer.Kind()
	ctx, span := o.tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(
		attribute.String("kratio.path", path),
		attribute.String("kratio.kind", kind.String()),
	))
	defer span.End()

	start := o.options.Now()
	fail := func(stage Stage, err error) (Result, error) {
		failSpan(span, err)
		o.options.Metrics.RecordAnalysis(kind.String(), string(stage), o.options.Now().Sub(start), 0)
		return Result{}, err
	}

	text, err := o.options.Source.Read(path)
	if err != nil {
		return fail(StageRead, err)
	}
	recordSpanEvent(ctx, "document.read", attribute.Int("kratio.bytes", len(text)))
	table, err := o.options.Analyzer.Analyze(text)
	if err != nil {
		return fail(StageAnalyze, &ProcessingError{Path: path, Stage: StageAnalyze, Err: err})
	}

	completed := o.options.Now()
	duration := completed.Sub(start)
	span.SetAttributes(attribute.Int("kratio.rows", len(table.Rows)), attribute.Int("kratio.total", table.Total))
	o.options.Metrics.RecordAnalysis(kind.String(), "ok", duration, len(table.Rows))
	return Result{
		RunID:       uuid.NewString(),
		Path:        path,
		Kind:        kind,
		Table:       table,
		Duration:    duration,
		CompletedAt: completed.UTC(),
	}, nil
}

// emit renders, serializes and plots result, then publishes it.
func (o *Orchestrator) emit(ctx context.Context, result *Result) error {
	_, span := o.tracer.Start(ctx, "pipeline.emit",
		trace.WithAttributes(attribute.String("kratio.path", result.Path)))
	defer span.End()

	err := o.write(result)
	if err != nil {
		failSpan(span, err)
		return err
	}
	o.options.Bus.Publish(*result)
	o.logger.Info("analysis complete", map[string]string{
		"path":   result.Path,
		"run_id": result.RunID,
		"kind":   result.Kind.String(),
		"rows":   strconv.Itoa(len(result.Table.Rows)),
	})
	return nil
}

func (o *Orchestrator) write(result *Result) error {
	if err := o.checkDestinations(result); err != nil {
		return err
	}
	if o.options.Renderer != nil {
		if err := o.options.Renderer.Render(result.Table); err != nil {
			return &ProcessingError{Path: result.Path, Stage: StageRender, Err: err}
		}
	}
	if result.OutputPath != "" {
		if err := o.options.Serializer.Serialize(result.Table, result.OutputPath); err != nil {
			return &ProcessingError{Path: result.Path, Stage: StageSerialize, Err: err}
		}
	}
	if result.PlotPath != "" {
		if err := o.options.Plotter.Save(result.Table, result.PlotPath); err != nil {
			return &ProcessingError{Path: result.Path, Stage: StagePlot, Err: err}
		}
	}
	return nil
}

// checkDestinations rejects bad output and plot locations before anything is
// rendered or written.
func (o *Orchestrator) checkDestinations(result *Result) error {
	if result.OutputPath != "" {
		if err := output.EnsureOutputDir(result.OutputPath); err != nil {
			return err
		}
		if !output.SupportedExtension(result.OutputPath) {
			err := fmt.Errorf("%w: %q (use .csv, .json or .pb)", output.ErrUnsupportedFormat, filepath.Ext(result.OutputPath))
			return &ProcessingError{Path: result.Path, Stage: StageSerialize, Err: err}
		}
	}
	if result.PlotPath != "" {
		if err := output.EnsureOutputDir(result.PlotPath); err != nil {
			return err
		}
		if !output.SupportedPlotExtension(result.PlotPath) {
			err := fmt.Errorf("%w: %q (use .png or .svg)", output.ErrUnsupportedFormat, filepath.Ext(result.PlotPath))
			return &ProcessingError{Path: result.Path, Stage: StagePlot, Err: err}
		}
	}
	return nil
}

func (o *Orchestrator) plotPath(path string) string {
	if o.options.DisablePlot {
		return ""
	}
	return path
}

func (o *Orchestrator) heading(path string) {
	if o.options.Out == nil || o.options.Renderer == nil {
		return
	}
	_, _ = io.WriteString(o.options.Out, "\n== "+path+" ==\n")
}

func (o *Orchestrator) derivedPath(base, root, file string) string {
	if base == "" {
		return ""
	}
	return InsertStem(base, root, file)
}

// InsertStem names the per-file variant of base: "out/report.csv" with file
// "notes.txt" becomes "out/report.notes.csv". Files in subdirectories of root
// join their relative path with underscores.
func InsertStem(base, root, file string) string {
	relative, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(relative, "..") {
		relative = filepath.Base(file)
	}
	stem := strings.TrimSuffix(relative, filepath.Ext(relative))
	stem = strings.ReplaceAll(filepath.ToSlash(stem), "/", "_")

	extension := filepath.Ext(base)
	return strings.TrimSuffix(base, extension) + "." + stem + extension
}
