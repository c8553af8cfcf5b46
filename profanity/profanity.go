package profanity

import (
	goaway "github.com/TwiN/go-away"
)

// Filter is an opaque text transform that masks profane words in display
// text. Badge owners can opt out per request.
type Filter struct {
	detector *goaway.ProfanityDetector
}

func NewFilter() *Filter {
	return &Filter{
		detector: goaway.NewProfanityDetector(),
	}
}

func (f *Filter) Clean(text string) string {
	return f.detector.Censor(text)
}
