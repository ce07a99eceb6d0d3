package check

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	pathColor     = color.New(color.Bold)
	errorColor    = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow, color.Bold)
	ruleColor     = color.New(color.Faint)
	summaryColor  = color.New(color.FgCyan)
	severityError = map[string]bool{"grammar": true, "inconsistency": true}
)

// IsError reports whether a suggestion category is shown as an error rather
// than a warning.
func IsError(category string) bool {
	return severityError[category]
}

// Report writes one line per finding as "path:line:col: [category] message
// (rule)" followed by a summary, and returns the number of findings.
func Report(w io.Writer, results []FileResult) int {
	total := 0
	for _, res := range results {
		for _, f := range res.Findings {
			ts := f.Suggestion
			category := ts.Category
			if category == "" {
				category = "suggestion"
			}
			tag := warningColor.Sprintf("[%s]", category)
			if IsError(ts.Category) {
				tag = errorColor.Sprintf("[%s]", category)
			}
			line := fmt.Sprintf("%s: %s %s", pathColor.Sprintf("%s:%d:%d", res.Path, f.Line, f.Column), tag, ts.Message)
			if ts.Source != "" {
				line += " " + ruleColor.Sprintf("(%s)", ts.Source)
			}
			fmt.Fprintln(w, line)
			total++
		}
	}
	if total > 0 {
		fmt.Fprintln(w, summaryColor.Sprintf("%d suggestion(s) in %d file(s)", total, filesWithFindings(results)))
	}
	return total
}

func filesWithFindings(results []FileResult) int {
	n := 0
	for _, res := range results {
		if len(res.Findings) > 0 {
			n++
		}
	}
	return n
}
