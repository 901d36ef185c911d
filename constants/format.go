package constants

import "strings"

// DocumentFormat selects the aggregation shape for a whole document.
type DocumentFormat string

// Stable values.
const (
	FormatStandard    DocumentFormat = "STANDARD"      // Matrix / Comp-Grab / dates row layout
	FormatRCWorkOrder DocumentFormat = "RC_WORK_ORDER" // R & C Work Order parameter-metadata layout
)

// AllowedExtensions holds the file extensions accepted for extraction.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a (dotted or bare) extension is accepted.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
