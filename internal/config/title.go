package config

import (
	"fmt"
	"time"
)

// Title is the report title: either literal text or a zero-argument producer
// invoked once per render. The zero value resolves to a timestamped default.
type Title struct {
	literal string
	compute func() string
}

// LiteralTitle returns a Title holding fixed text.
func LiteralTitle(text string) Title {
	return Title{literal: text}
}

// ComputedTitle returns a Title that invokes fn when resolved.
func ComputedTitle(fn func() string) Title {
	return Title{compute: fn}
}

// Resolve produces the title text. Computed titles are invoked here, exactly
// once per call.
func (t Title) Resolve() string {
	if t.compute != nil {
		return t.compute()
	}
	if t.literal != "" {
		return t.literal
	}
	return defaultTitle()
}

func defaultTitle() string {
	return fmt.Sprintf("Bundlescope [%s]", time.Now().Format("02 Jan 2006 at 15:04"))
}
