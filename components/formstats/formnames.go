package formstats

import (
	"regexp"
	"strings"
)

var ignoredFormNames = []*regexp.Regexp{
	regexp.MustCompile(`^[A-F0-9]{8,9}-`),
	regexp.MustCompile(`^testGroupId`),
}

// ExtractFormNames turns pagePathLevel3 values into a de-duplicated list of
// form slugs, dropping generated test forms.
func ExtractFormNames(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		name := strings.TrimSpace(strings.ReplaceAll(path, "/", ""))
		if name == "" || ignoredFormName(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func ignoredFormName(name string) bool {
	for _, re := range ignoredFormNames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
