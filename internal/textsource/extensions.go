package textsource

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file types analyzed in directory scans and watch mode.
var DefaultExtensions = []string{".txt", ".md", ".py", ".html", ".js"}

// ExtensionSet is a normalized set of file extensions (lowercase, leading dot).
type ExtensionSet map[string]struct{}

func NewExtensionSet(extensions ...string) ExtensionSet {
	set := make(ExtensionSet, len(extensions))
	for _, extension := range extensions {
		normalized := NormalizeExtension(extension)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

// ParseExtensions reads a comma separated list such as "txt, .md".
func ParseExtensions(value string) ExtensionSet {
	return NewExtensionSet(strings.Split(value, ",")...)
}

func NormalizeExtension(extension string) string {
	trimmed := strings.ToLower(strings.TrimSpace(extension))
	if trimmed == "" || trimmed == "." {
		return ""
	}
	if !strings.HasPrefix(trimmed, ".") {
		trimmed = "." + trimmed
	}
	return trimmed
}

// Matches reports whether path carries an extension from the set.
func (set ExtensionSet) Matches(path string) bool {
	if len(set) == 0 {
		return false
	}
	_, ok := set[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (set ExtensionSet) List() []string {
	list := make([]string, 0, len(set))
	for extension := range set {
		list = append(list, extension)
	}
	sort.Strings(list)
	return list
}

func (set ExtensionSet) String() string {
	return strings.Join(set.List(), ",")
}
