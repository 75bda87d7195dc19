package main

import (
	"os"
	"strings"

	"kratio/internal/config"
)

func loadSettings(configPath string, explicit bool, overrides map[string]string, lookupEnv func(string) (string, bool)) (config.Settings, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = config.DefaultFileName
		explicit = false
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	settings, err := config.Load(config.LoadOptions{
		Path:      path,
		Explicit:  explicit,
		LookupEnv: lookupEnv,
		Overrides: overrides,
	})
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// settingsFields summarizes where each non-default setting came from.
func settingsFields(settings config.Settings) map[string]string {
	fields := map[string]string{}
	for key, source := range settings.Sources {
		if source != config.SourceDefault {
			fields[key] = string(source)
		}
	}
	if settings.ConfigFile != "" {
		fields["config_file"] = settings.ConfigFile
	}
	return fields
}
