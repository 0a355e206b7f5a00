package configstore

import (
	"strings"
	"testing"
)

func noOptions(string) bool  { return false }
func allOptions(string) bool { return true }

// TestFilterSection_LogicPodStripping verifies logic-pod sub-fields are
// removed without the LOGIC option and preserved verbatim with it
func TestFilterSection_LogicPodStripping(t *testing.T) {
	display := ":DISPLAY:FORMAT SINGLE;:DISPLAY:RGB:WAVEFORM:PODA 1;:DISPLAY:INTENSITY 50;"

	filtered := FilterSection(SectionDisplay, display, noOptions)
	if strings.Contains(filtered, "POD") {
		t.Errorf("logic-pod field survived filtering: %q", filtered)
	}
	if !strings.Contains(filtered, ":DISPLAY:FORMAT SINGLE") {
		t.Errorf("unrelated field was stripped: %q", filtered)
	}
	if !strings.Contains(filtered, ":DISPLAY:INTENSITY 50") {
		t.Errorf("field after the stripped range was lost: %q", filtered)
	}

	// Option installed: verbatim pass-through
	if got := FilterSection(SectionDisplay, display, allOptions); got != display {
		t.Errorf("filtering mutated text despite installed option:\n got %q\nwant %q", got, display)
	}
}

// TestFilterSection_SearchRules verifies all three logic-gated search
// patterns are stripped together
func TestFilterSection_SearchRules(t *testing.T) {
	search := ":SEARCH:PPATTERN:LOGIC:A 1;:SEARCH:SPATTERN:BIT:B0 HIGH;:SEARCH:SPI:ANALYZE:SETUP:CS:LOGIC:X 1;:SEARCH:TYPE EDGE;"

	filtered := FilterSection(SectionSearch, search, noOptions)
	for _, banned := range []string{"PPATTERN:LOGIC", "SPATTERN:BIT", "CS:LOGIC"} {
		if strings.Contains(filtered, banned) {
			t.Errorf("%s survived filtering: %q", banned, filtered)
		}
	}
	if !strings.Contains(filtered, "SEARCH:TYPE EDGE") {
		t.Errorf("unrelated search field was stripped: %q", filtered)
	}
}

// TestFilterSection_UserDefineMath verifies user-defined math stripping
// is gated on the USERDEFINE option
func TestFilterSection_UserDefineMath(t *testing.T) {
	math := ":MATH1:MODE XY;:MATH1:USERDEFINE:EXPRESSION \"C1+C2\";:MATH2:MODE OFF;"

	filtered := FilterSection(SectionMath, math, noOptions)
	if strings.Contains(filtered, "USERDEFINE") {
		t.Errorf("user-define field survived filtering: %q", filtered)
	}
	if !strings.Contains(filtered, ":MATH1:MODE XY") || !strings.Contains(filtered, ":MATH2:MODE OFF") {
		t.Errorf("unrelated math fields were stripped: %q", filtered)
	}

	has := func(token string) bool { return token == OptionUserDefine }
	if got := FilterSection(SectionMath, math, has); got != math {
		t.Errorf("filtering mutated text despite installed option: %q", got)
	}
}

// TestFilterSection_TriggerCancelUnconditional verifies the trigger CAN
// sub-tree is stripped regardless of installed options
func TestFilterSection_TriggerCancelUnconditional(t *testing.T) {
	trig := ":TRIGGER:MODE AUTO;:TRIG:CAN:BITRATE 500000;:TRIGGER:LEVEL 1.0;"

	for name, has := range map[string]OptionChecker{"no options": noOptions, "all options": allOptions} {
		filtered := FilterSection(SectionTrigger, trig, has)
		if strings.Contains(filtered, ":TRIG:CAN:") {
			t.Errorf("%s: trigger CAN field survived filtering: %q", name, filtered)
		}
		if !strings.Contains(filtered, ":TRIGGER:MODE AUTO") {
			t.Errorf("%s: unrelated trigger field was stripped: %q", name, filtered)
		}
	}
}

// TestFilterSection_OtherSectionsUntouched verifies sections without
// rules pass through verbatim
func TestFilterSection_OtherSectionsUntouched(t *testing.T) {
	acq := ":ACQUIRE:RLENGTH 10000;MODE NORMAL;"
	if got := FilterSection(SectionAcquire, acq, noOptions); got != acq {
		t.Errorf("acquire section mutated: %q", got)
	}
}
