// Package linediff renders line-based unified diffs with go-difflib.
package linediff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter produces unified diffs for files GitHub returns without a patch.
type Adapter struct {
	context int
}

// New creates a new line diff adapter with three lines of context.
func New() *Adapter {
	return &Adapter{context: 3}
}

// ComputeDiff returns a unified diff between base and head, or an empty string
// when they are identical.
func (a *Adapter) ComputeDiff(baseName, headName string, base, head []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(base)),
		B:        difflib.SplitLines(string(head)),
		FromFile: baseName,
		ToFile:   headName,
		Context:  a.context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
