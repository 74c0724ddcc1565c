package steward

// Theme maps output roles to ANSI color indices (0-15), so rendered answers
// follow the terminal's own palette.
type Theme struct {
	Question int // Echoed user question
	Thinking int // Reasoning text under ThinkingEmit
	Error    int // Error events
	Muted    int // Notices, rules, list markers
	CodeBg   int // Code block background
	Accent   int // Headings, links, figures
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Question: 4,
		Thinking: 8,
		Error:    1,
		Muted:    8,
		CodeBg:   0,
		Accent:   5,
	}
}
