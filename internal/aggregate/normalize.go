package aggregate

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/classify"
)

// reCombined matches a value holding exactly two whitespace-separated
// tokens, the shape of a merged matrix+grab code ("DW G") or a merged
// result+units pair ("0.5 mg/L").
var reCombined = regexp.MustCompile(`^(\S+)\s+(\S+)$`)

// SplitCombined splits a two-token combined value. ok is false when the
// value does not have exactly two tokens; the caller leaves it unsplit.
func SplitCombined(value string) (first, second string, ok bool) {
	m := reCombined.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// DetectFormat decides the document-global aggregation shape. Seeing the
// work-order name itself is decisive on its own; the generic R&C column
// names individually also occur on standard forms, so those only trigger
// when several appear together.
func DetectFormat(keys []string) constants.DocumentFormat {
	decisive := []string{"r_and_c_work_order", "r_c_work_order"}
	generic := []string{
		"yr_date", "sample_description", "total_number_of_containers",
		"filtered_yes_no", "cooled_yes_no", "container_type_plastic_glass",
		"container_volume_ml", "sample_type_grab_composite",
		"sample_source_ww_gw_dw_sw_s_other",
	}

	normalized := make([]string, 0, len(keys))
	for _, k := range keys {
		normalized = append(normalized, classify.NormalizeKey(k))
	}

	for _, ind := range decisive {
		for _, k := range normalized {
			if strings.Contains(k, ind) {
				return constants.FormatRCWorkOrder
			}
		}
	}

	hits := 0
	for _, ind := range generic {
		for _, k := range normalized {
			if strings.Contains(k, ind) {
				hits++
				break
			}
		}
	}
	if hits >= 3 {
		return constants.FormatRCWorkOrder
	}
	return constants.FormatStandard
}
