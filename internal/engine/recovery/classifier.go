package recovery

import (
	"strings"

	"go.trai.ch/ember/internal/core/domain"
)

// classificationRules maps lowercase substrings to error kinds. Rules are
// checked in order; the first match wins, so more specific markers come first.
var classificationRules = []struct {
	marker string
	kind   domain.ErrorKind
}{
	{"swiftc", domain.ErrorCompilation},
	{"compile", domain.ErrorCompilation},
	{"compilation", domain.ErrorCompilation},
	{"syntax", domain.ErrorCompilation},
	{"type-check", domain.ErrorCompilation},
	{"undefined symbol", domain.ErrorCompilation},
	{"linker", domain.ErrorCompilation},
	{"no such file", domain.ErrorFilesystem},
	{"permission denied", domain.ErrorFilesystem},
	{"file not found", domain.ErrorFilesystem},
	{"directory", domain.ErrorFilesystem},
	{"read-only", domain.ErrorFilesystem},
	{"connection", domain.ErrorNetwork},
	{"timeout", domain.ErrorNetwork},
	{"timed out", domain.ErrorNetwork},
	{"unreachable", domain.ErrorNetwork},
	{"dns", domain.ErrorNetwork},
	{"socket", domain.ErrorNetwork},
	{"out of memory", domain.ErrorMemory},
	{"allocation", domain.ErrorMemory},
	{"oom", domain.ErrorMemory},
	{"panic", domain.ErrorRuntime},
	{"crash", domain.ErrorRuntime},
	{"segmentation", domain.ErrorRuntime},
	{"nil pointer", domain.ErrorRuntime},
	{"exception", domain.ErrorRuntime},
}

// Classify maps error text onto the fixed error taxonomy. Unmatched text
// falls back to ErrorUnknown.
func Classify(description string) domain.ErrorKind {
	lowered := strings.ToLower(description)
	for _, rule := range classificationRules {
		if strings.Contains(lowered, rule.marker) {
			return rule.kind
		}
	}
	return domain.ErrorUnknown
}
