// Package suggest maps grammar suggestions made against clean text back onto
// byte-exact edits of the original Markdown document.
package suggest

// Suggestion is a correction reported by a grammar engine. Start and End are
// rune offsets into the clean text that was checked.
type Suggestion struct {
	Start        int
	End          int
	Replacements []string
	Rule         string
	Message      string
	// Category is the engine's rule category, e.g. GRAMMAR or TYPOS.
	Category string
	// IssueType classifies the problem, e.g. grammar or misspelling.
	IssueType string
}

// Clone returns a deep copy of s.
func (s Suggestion) Clone() Suggestion {
	s.Replacements = append([]string(nil), s.Replacements...)
	return s
}

// CloneAll deep-copies a slice of suggestions.
func CloneAll(in []Suggestion) []Suggestion {
	if in == nil {
		return nil
	}
	out := make([]Suggestion, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// Replacement replaces the document bytes [Start, End).
type Replacement struct {
	Replacement string `json:"replacement"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

// Alternative is a further candidate fix for the same suggestion.
type Alternative struct {
	Label        string        `json:"label"`
	Replacements []Replacement `json:"replacements"`
}

// TextSuggestion is a suggestion located in the document. It travels to the
// editor as diagnostic data and comes back with code action requests.
type TextSuggestion struct {
	Source       string        `json:"source"`
	Message      string        `json:"message"`
	Category     string        `json:"category,omitempty"`
	Start        int           `json:"start"`
	End          int           `json:"end"`
	Label        string        `json:"label,omitempty"`
	Replacements []Replacement `json:"replacements"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}
