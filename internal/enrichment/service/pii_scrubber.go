package service

import "regexp"

const redactedPlaceholder = "[REDACTED]"

// PIIScrubber redacts common personally identifiable patterns from stored
// trace and span text before it gets indexed for search.
type PIIScrubber struct {
	patterns []*regexp.Regexp
}

func NewPIIScrubber() *PIIScrubber {
	return &PIIScrubber{
		patterns: []*regexp.Regexp{
			// email addresses
			regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			// credit card numbers, with or without separators
			regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`),
			// US social security numbers
			regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			// international phone numbers
			regexp.MustCompile(`\+\d{1,3}[ \-]?\(?\d{1,4}\)?(?:[ \-]?\d{2,4}){2,3}`),
		},
	}
}

func (s *PIIScrubber) Scrub(text string) string {
	for _, pattern := range s.patterns {
		text = pattern.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
