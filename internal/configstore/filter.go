package configstore

import (
	"regexp"
	"strings"
)

// Option tokens gating configuration sections
const (
	// OptionLogic is the logic-input (pod) option
	OptionLogic = "LOGIC"

	// OptionUserDefine is the user-defined math option
	OptionUserDefine = "USERDEFINE"
)

// Section identifiers for the filter table
const (
	SectionAcquire  = "acquire"
	SectionChannel  = "channel"
	SectionCursor   = "cursor"
	SectionDisplay  = "display"
	SectionMath     = "math"
	SectionMeasure  = "measure"
	SectionSearch   = "search"
	SectionPhase    = "phase"
	SectionTimebase = "timebase"
	SectionTrigger  = "trigger"
	SectionZoom     = "zoom"
)

// filterRule strips one family of option-dependent sub-fields from a
// section's reply text. Sending such fields back to a unit without the
// option installed raises a device-side error.
type filterRule struct {
	section string         // section the rule applies to
	option  string         // keep the fields when this option is present; "" strips unconditionally
	pattern *regexp.Regexp // sub-fields to remove
	replace string         // boundary text restored in place of the match
	trim    bool           // trim a stray ':' left dangling at the end after removal
}

// filterRules is the full filter table. Patterns are matched against the
// uppercase command text the instrument returns.
var filterRules = []filterRule{
	// Logic-pod display allocation
	{SectionDisplay, OptionLogic, regexp.MustCompile(`:DISPLAY:RGB:WAVEFORM:POD.+?;[:\n]`), ":", true},
	// User-defined math expressions
	{SectionMath, OptionUserDefine, regexp.MustCompile(`:MATH\d:USERDEFINE:.+?;[:\n]`), ":", true},
	// Logic-pod search setups
	{SectionSearch, OptionLogic, regexp.MustCompile(`:SEARCH:PPATTERN:LOGIC:.+?;[:\n]`), ":", true},
	{SectionSearch, OptionLogic, regexp.MustCompile(`:SEARCH:SPATTERN:BIT:.+?;[:\n]`), ":", true},
	{SectionSearch, OptionLogic, regexp.MustCompile(`:SEARCH:SPI:ANALYZE:SETUP:CS:LOGIC:.+?;[:\n]`), ":", true},
	// Logic-pod zoom allocation
	{SectionZoom, OptionLogic, regexp.MustCompile(`:ZOOM:ALLOCATION:POD.+?;[:\n]`), ":", true},
	// The trigger CAN sub-tree errors on apply regardless of options
	{SectionTrigger, "", regexp.MustCompile(`:TRIG:CAN:.+?;[:\n]`), ";", false},
}

// OptionChecker reports whether an option token is installed on the
// connected unit
type OptionChecker func(token string) bool

// FilterSection removes the option-dependent sub-fields that must not be
// replayed to the current unit from one section's reply text. With the
// gating option installed the text passes through verbatim.
func FilterSection(section, text string, has OptionChecker) string {
	for _, rule := range filterRules {
		if rule.section != section {
			continue
		}
		if rule.option != "" && has != nil && has(rule.option) {
			continue
		}
		text = rule.pattern.ReplaceAllString(text, rule.replace)
		if rule.trim {
			// A match ending at the final newline leaves the replacement
			// ':' dangling at the end of the text
			text = strings.TrimRight(text, ":")
		}
	}
	return text
}
