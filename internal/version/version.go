package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at build time with -ldflags "-X kratio/internal/version.Version=...".
var Version = "dev"
var Built = ""
var GitCommit = ""

type Info struct {
	Version   string `json:"version"`
	Built     string `json:"built,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Built:     Built,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

// String renders the --version line.
func (info Info) String() string {
	details := []string{info.GoVersion}
	if info.GitCommit != "" {
		details = append(details, "commit "+info.GitCommit)
	}
	if info.Built != "" {
		details = append(details, "built "+info.Built)
	}
	return fmt.Sprintf("kratio %s (%s)", info.Version, strings.Join(details, ", "))
}
