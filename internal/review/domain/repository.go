package domain

import (
	"regexp"
	"strconv"
)

// LanguageStat is a language and the number of bytes written in it.
type LanguageStat struct {
	Name  string
	Bytes int
}

// RepoSignals is the repository snapshot used to ground a review.
// A nil dependency map means the manifest is absent; an empty one means it
// exists but lists nothing.
type RepoSignals struct {
	Languages       []LanguageStat
	Dependencies    map[string]string
	DevDependencies map[string]string
}

const (
	FactNoLanguages       = "No languages found in the repository"
	FactNoDependencies    = "No dependencies found in the repository"
	FactNoDevDependencies = "No devDependencies found in the repository"
)

// CollectGroundTruths returns one fact per missing repository signal, in the
// order languages, dependencies, devDependencies.
func CollectGroundTruths(languages []LanguageStat, deps, devDeps map[string]string) []string {
	var facts []string
	if len(languages) == 0 {
		facts = append(facts, FactNoLanguages)
	}
	if deps != nil && len(deps) == 0 {
		facts = append(facts, FactNoDependencies)
	}
	if devDeps != nil && len(devDeps) == 0 {
		facts = append(facts, FactNoDevDependencies)
	}
	return facts
}

var issueRefPattern = regexp.MustCompile(`#(\d+)`)

// FirstIssueReference returns the number of the first "#<digits>" token in
// text, or 0 when there is none.
func FirstIssueReference(text string) int {
	m := issueRefPattern.FindStringSubmatch(text)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
