package constants

import "strings"

// CheckboxState is the two-state vocabulary every checkbox value is reduced to.
type CheckboxState string

const (
	Checked   CheckboxState = "checked"
	Unchecked CheckboxState = "unchecked"
)

// AbsentValue marks a scalar attribute the document did not fill in.
// It is legal for non-checkbox attributes only; the normalizer removes it
// from checkbox fields.
const AbsentValue = "NIL"

// checkedTokens are the raw values recognized as a filled checkbox.
var checkedTokens = map[string]struct{}{
	"checked": {},
	"x":       {},
	"✓":       {},
	"☑":       {},
	"■":       {},
	"yes":     {},
	"y":       {},
	"true":    {},
}

// NormalizeCheckbox reduces any raw checkbox value to Checked or Unchecked.
// Placeholders ("NIL", "-", "n/a", empty) and anything unrecognized map to
// Unchecked. Idempotent: normalizing "checked"/"unchecked" returns it as is.
func NormalizeCheckbox(raw string) CheckboxState {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := checkedTokens[v]; ok {
		return Checked
	}
	return Unchecked
}
