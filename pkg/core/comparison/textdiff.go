package comparison

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"disclosurecore/pkg/core/models"
)

// DiffText computes a coarse, line-level Ratcliff/Obershelp match ratio
// between a section's rendered content on each side, for summary stats
// only (spec.md §4.10: "not a substitute for the per-section LLM
// analysis"). go-difflib's SequenceMatcher implements the same algorithm
// as Python's difflib, which this spec's "Ratcliff/Obershelp-style"
// wording names directly.
func DiffText(textA, textB string) models.TextDifference {
	linesA := splitLines(textA)
	linesB := splitLines(textB)

	matcher := difflib.NewMatcher(linesA, linesB)
	ratio := matcher.Ratio()

	var added, removed, changed []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'i':
			added = append(added, linesB[op.J1:op.J2]...)
		case 'd':
			removed = append(removed, linesA[op.I1:op.I2]...)
		case 'r':
			changed = append(changed, linesA[op.I1:op.I2]...)
			changed = append(changed, linesB[op.J1:op.J2]...)
		}
	}

	return models.TextDifference{
		AddedText:   added,
		RemovedText: removed,
		ChangedText: changed,
		MatchRatio:  ratio,
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
