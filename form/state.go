package form

import (
	"fmt"
	"strings"
)

// Mode selects when field validation fires.
type Mode int

const (
	OnChange Mode = iota // Re-validate a field on every SetValue/Clear.
	OnSubmit             // Validate only on Submit/Validate.
	OnBlur               // Re-validate a field when it loses focus.
)

func (m Mode) String() string {
	switch m {
	case OnChange:
		return "onChange"
	case OnSubmit:
		return "onSubmit"
	case OnBlur:
		return "onBlur"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "onChange", "onSubmit", "onBlur" (case-insensitive, the
// "on" prefix optional).
func ParseMode(s string) (Mode, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "on") {
	case "change":
		return OnChange, nil
	case "submit":
		return OnSubmit, nil
	case "blur":
		return OnBlur, nil
	}
	return 0, fmt.Errorf("form: unknown mode %q", s)
}

// State is the session lifecycle:
//
//	Pristine -> Editing -> Validating -> {Valid, Invalid} -> Submitting -> {SubmitSucceeded, SubmitFailed} -> Editing
type State int

const (
	Pristine State = iota
	Editing
	Validating
	Valid
	Invalid
	Submitting
	SubmitSucceeded
	SubmitFailed
)

var stateNames = [...]string{
	Pristine:        "pristine",
	Editing:         "editing",
	Validating:      "validating",
	Valid:           "valid",
	Invalid:         "invalid",
	Submitting:      "submitting",
	SubmitSucceeded: "submit_succeeded",
	SubmitFailed:    "submit_failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
