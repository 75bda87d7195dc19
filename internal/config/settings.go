package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultFileName = "kratio.yaml"
const EnvPrefix = "KRATIO_"

type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Keys lists every setting in its canonical form.
var Keys = []string{
	"analysis-type", "top-n", "output", "save-plot", "no-visualization",
	"format", "silent", "debug", "watch", "serve", "extensions", "workers",
	"debounce", "cache-size", "log-file",
}

var defaults = map[string]string{
	"analysis-type":    "word",
	"top-n":            "10",
	"output":           "",
	"save-plot":        "",
	"no-visualization": "false",
	"format":           "",
	"silent":           "false",
	"debug":            "false",
	"watch":            "false",
	"serve":            "",
	"extensions":       ".txt,.md,.py,.html,.js",
	"workers":          "4",
	"debounce":         "100ms",
	"cache-size":       "64",
	"log-file":         "logs/kratio.log",
}

type Settings struct {
	AnalysisType    string `validate:"required"`
	TopN            int    `validate:"gte=1"`
	Output          string
	SavePlot        string
	NoVisualization bool
	// Format is empty when the renderer should pick from the terminal.
	Format     string `validate:"omitempty,oneof=table json csv"`
	Silent     bool
	Debug      bool
	Watch      bool
	Serve      string        `validate:"omitempty,hostname_port"`
	Extensions []string      `validate:"min=1,dive,startswith=."`
	Workers    int           `validate:"gte=1,lte=256"`
	Debounce   time.Duration `validate:"gt=0"`
	CacheSize  int           `validate:"gte=0"`
	LogFile    string
	ConfigFile string
	Sources    map[string]Source
}

type LoadOptions struct {
	// Path is the YAML file to read. A missing file is an error only when
	// Explicit is set.
	Path      string
	Explicit  bool
	LookupEnv func(string) (string, bool)
	// Overrides holds flag values by key and wins over every other source.
	Overrides map[string]string
}

// Load resolves settings from defaults, the YAML file, KRATIO_* environment
// variables and overrides, in increasing precedence.
func Load(options LoadOptions) (Settings, error) {
	values := make(map[string]string, len(defaults))
	sources := make(map[string]Source, len(defaults))
	for key, value := range defaults {
		values[key] = value
		sources[key] = SourceDefault
	}

	loadedFile := ""
	if strings.TrimSpace(options.Path) != "" {
		fileValues, err := readFile(options.Path)
		switch {
		case err == nil:
			loadedFile = options.Path
			for key, value := range fileValues {
				values[key] = value
				sources[key] = SourceFile
			}
		case errors.Is(err, os.ErrNotExist) && !options.Explicit:
		default:
			return Settings{}, err
		}
	}

	lookup := options.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range Keys {
		if value, ok := lookup(EnvName(key)); ok {
			values[key] = value
			sources[key] = SourceEnv
		}
	}

	for key, value := range options.Overrides {
		normalized := NormalizeKey(key)
		if _, known := defaults[normalized]; !known {
			return Settings{}, fmt.Errorf("unknown setting %q", key)
		}
		values[normalized] = value
		sources[normalized] = SourceFlag
	}

	settings, err := decode(values, sources)
	if err != nil {
		return Settings{}, err
	}
	settings.ConfigFile = loadedFile
	return settings, nil
}

// Validate checks ranges and enumerations.
func (settings Settings) Validate() error {
	if err := validator.New().Struct(settings); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			field := invalid[0]
			return fmt.Errorf("invalid setting %s: failed %q check", field.Field(), field.Tag())
		}
		return err
	}
	return nil
}

// NormalizeKey maps "top_n", "TOP-N" and "top-n" to "top-n".
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "-")
}

// EnvName returns the environment variable for key, e.g. KRATIO_TOP_N.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(NormalizeKey(key), "-", "_"))
}

func readFile(path string) (map[string]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		normalized := NormalizeKey(key)
		if _, known := defaults[normalized]; !known {
			return nil, fmt.Errorf("parse %s: unknown setting %q", path, key)
		}
		values[normalized] = yamlString(value)
	}
	return values, nil
}

func yamlString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(typed)
	}
}

func decode(values map[string]string, sources map[string]Source) (Settings, error) {
	settings := Settings{Sources: sources}
	var err error
	settings.AnalysisType = strings.TrimSpace(values["analysis-type"])
	settings.Output = strings.TrimSpace(values["output"])
	settings.SavePlot = strings.TrimSpace(values["save-plot"])
	settings.Format = strings.ToLower(strings.TrimSpace(values["format"]))
	settings.Serve = strings.TrimSpace(values["serve"])
	settings.LogFile = strings.TrimSpace(values["log-file"])
	settings.Extensions = splitList(values["extensions"])

	if settings.TopN, err = intSetting(values, "top-n"); err != nil {
		return Settings{}, err
	}
	if settings.Workers, err = intSetting(values, "workers"); err != nil {
		return Settings{}, err
	}
	if settings.CacheSize, err = intSetting(values, "cache-size"); err != nil {
		return Settings{}, err
	}
	for key, target := range map[string]*bool{
		"no-visualization": &settings.NoVisualization,
		"silent":           &settings.Silent,
		"debug":            &settings.Debug,
		"watch":            &settings.Watch,
	} {
		if *target, err = boolSetting(values, key); err != nil {
			return Settings{}, err
		}
	}
	debounce, err := time.ParseDuration(strings.TrimSpace(values["debounce"]))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid setting debounce: %w", err)
	}
	settings.Debounce = debounce
	return settings, nil
}

func intSetting(values map[string]string, key string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(values[key]))
	if err != nil {
		return 0, fmt.Errorf("invalid setting %s: %w", key, err)
	}
	return parsed, nil
}

func boolSetting(values map[string]string, key string) (bool, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid setting %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		list = append(list, strings.ToLower(trimmed))
	}
	return list
}
