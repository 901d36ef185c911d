package classify

import (
	"strings"

	"github.com/joseph-ayodele/coc-extractor/constants"
)

// Canonical scalar attribute names. These are the display labels of the
// aggregated sample record; the aggregator keys its assignment table on them.
const (
	AttrCustomerSampleID = "Customer Sample ID"
	AttrMatrix           = "Matrix"
	AttrCompGrab         = "Comp/Grab"
	AttrStartDate        = "Composite Start Date"
	AttrStartTime        = "Composite Start Time"
	AttrEndDate          = "Composite or Collected End Date"
	AttrEndTime          = "Composite or Collected End Time"
	AttrContainers       = "# Cont"
	AttrResidualResult   = "Residual Chloride Result"
	AttrResidualUnits    = "Residual Chloride Units"
	AttrSampleComment    = "Sample Comment"

	AttrRCWorkOrder       = "R & C Work Order"
	AttrRCDate            = "YR__ DATE"
	AttrRCTime            = "TIME"
	AttrRCDescription     = "SAMPLE DESCRIPTION"
	AttrRCTotalContainers = "Total Number of Containers"
	AttrRCFiltered        = "Filtered (Y/N)"
	AttrRCCooled          = "Cooled (Y/N)"
	AttrRCContainerType   = "Container Type (Plastic (P) / Glass (G))"
	AttrRCContainerVolume = "Container Volume in mL"
	AttrRCSampleType      = "Sample Type (Grab (G) / Composite (C))"
	AttrRCSampleSource    = "Sample Source (WW, GW, DW, SW, S, Others)"
)

// rule is one entry of the priority pattern table. Keys are matched after
// normalization (lowercased, spaces and '-' folded to '_'). A prefix match
// leaves its trailing remainder, and a suffix match its leading remainder,
// as the embedded sample-ID candidate.
type rule struct {
	attr     string
	kind     constants.FieldKind
	exact    []string
	prefixes []string
	suffixes []string
	contains []string
}

// match reports whether the normalized key belongs to this rule, and the
// leftover token run that may encode a sample ID ("" when none).
func (r *rule) match(key string) (remainder string, ok bool) {
	for _, e := range r.exact {
		if key == e {
			return "", true
		}
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(key, p+"_") {
			return key[len(p)+1:], true
		}
		if key == p {
			return "", true
		}
	}
	for _, s := range r.suffixes {
		if strings.HasSuffix(key, "_"+s) {
			return key[:len(key)-len(s)-1], true
		}
	}
	for _, c := range r.contains {
		if strings.Contains(key, c) {
			return strings.Trim(strings.ReplaceAll(key, c, ""), "_"), true
		}
	}
	return "", false
}

// rules is the fixed priority list: more specific families first, first
// match wins. The table consolidates every near-duplicate pattern variant
// the source documents produce.
var rules = []rule{
	// R & C Work Order family. These names are long and unambiguous, so
	// they go ahead of the generic families ("time" alone would otherwise
	// swallow "yr_date"-adjacent keys).
	{attr: AttrRCWorkOrder, kind: constants.KindSampleField, contains: []string{"r_and_c_work_order", "r_c_work_order"}},
	{attr: AttrRCDate, kind: constants.KindSampleField, contains: []string{"yr_date"}},
	{attr: AttrRCDescription, kind: constants.KindSampleField, contains: []string{"sample_description"}},
	{attr: AttrRCTotalContainers, kind: constants.KindField, contains: []string{"total_number_of_containers"}},
	{attr: AttrRCFiltered, kind: constants.KindSampleField, contains: []string{"filtered_yes_no", "filtered_y_n"}},
	{attr: AttrRCCooled, kind: constants.KindSampleField, contains: []string{"cooled_yes_no", "cooled_y_n"}},
	{attr: AttrRCContainerType, kind: constants.KindSampleField, contains: []string{"container_type_plastic_glass", "container_type"}},
	{attr: AttrRCContainerVolume, kind: constants.KindSampleField, contains: []string{"container_volume_ml", "container_volume"}},
	{attr: AttrRCSampleType, kind: constants.KindSampleField, contains: []string{"sample_type_grab_composite", "sample_type"}},
	{attr: AttrRCSampleSource, kind: constants.KindSampleField, contains: []string{"sample_source_ww_gw_dw_sw_s_other", "sample_source"}},

	// Standard sample-row family.
	{attr: AttrSampleComment, kind: constants.KindSampleField,
		prefixes: []string{"sample_comment"},
		suffixes: []string{"sample_comment"}},
	{attr: AttrCustomerSampleID, kind: constants.KindSampleField,
		exact:    []string{"sample_id", "customer_sample_id"},
		suffixes: []string{"sample_id"}},
	{attr: AttrStartDate, kind: constants.KindSampleField,
		exact:    []string{"composite_start_date", "start_date", "collection_date"},
		prefixes: []string{"collected_date_start", "collected_start_date", "composite_start_date"},
		suffixes: []string{"collected_date_start", "collected_start_date"}},
	{attr: AttrStartTime, kind: constants.KindSampleField,
		exact:    []string{"composite_start_time", "time_collected_composite_start", "start_time", "collection_time"},
		prefixes: []string{"collected_time_start", "collected_start_time", "composite_start_time"},
		suffixes: []string{"collected_time_start", "collected_start_time"}},
	{attr: AttrEndDate, kind: constants.KindSampleField,
		exact: []string{"composite_end_date", "collected_composite_end_date", "date_collected_composite_end",
			"collected_or_composite_end_date", "end_date"},
		prefixes: []string{"collected_date_end", "collected_end_date", "collected_composite_end_date",
			"collected_or_composite_end_date", "composite_end_date"},
		suffixes: []string{"collected_date_end", "collected_or_composite_end_date"}},
	{attr: AttrEndTime, kind: constants.KindSampleField,
		exact: []string{"composite_end_time", "collected_composite_end_time", "time_collected_composite_end",
			"collected_or_composite_end_time", "end_time"},
		prefixes: []string{"collected_time_end", "collected_end_time", "collected_composite_end_time",
			"collected_or_composite_end_time", "composite_end_time"},
		suffixes: []string{"collected_time_end", "collected_or_composite_end_time"}},
	{attr: AttrCompGrab, kind: constants.KindSampleField,
		exact:    []string{"comp_grab", "composite_grab", "grab_comp"},
		prefixes: []string{"comp_grab", "grab_comp"},
		suffixes: []string{"comp_grab", "grab_comp"}},
	{attr: AttrMatrix, kind: constants.KindSampleField,
		exact:    []string{"matrix"},
		prefixes: []string{"matrix"},
		suffixes: []string{"matrix"}},
	{attr: AttrResidualResult, kind: constants.KindSampleField,
		exact: []string{"result", "residual_chlorine_result", "residual_chloride_result",
			"residual_chlorine", "residual_chloride", "chlorine_result", "chloride_result"},
		prefixes: []string{"residual_chlorine_result", "residual_chloride_result"},
		suffixes: []string{"residual_chlorine_result", "residual_chloride_result"}},
	{attr: AttrResidualUnits, kind: constants.KindSampleField,
		exact: []string{"units", "residual_chlorine_units", "residual_chloride_units",
			"chlorine_units", "chloride_units"},
		prefixes: []string{"residual_chlorine_units", "residual_chloride_units"},
		suffixes: []string{"residual_chlorine_units", "residual_chloride_units"}},
	{attr: AttrContainers, kind: constants.KindSampleField,
		exact: []string{"cont", "number_of_containers", "num_containers", "container_count",
			"container_number", "no_containers", "containers"},
		prefixes: []string{"number_containers", "number_of_containers"},
		suffixes: []string{"number_containers", "number_of_containers"}},

	// Generic date/time land on the end attributes; the source forms label
	// the collection-end column as bare "DATE"/"TIME".
	{attr: AttrEndDate, kind: constants.KindSampleField, exact: []string{"date"}, prefixes: []string{"date"}},
	{attr: AttrEndTime, kind: constants.KindSampleField, exact: []string{"time"}, prefixes: []string{"time"}},
}

// Analysis-checkbox key families and their code position.
const (
	analysisSuffixCheckbox = "checkbox"
	analysisPrefixAnalysis = "analysis"
	analysisPrefixParam    = "parameter"
)

// generalCheckboxKeywords marks non-analysis checkbox fields: data
// deliverable levels, rush options, timezone and reportable boxes.
var generalCheckboxKeywords = []string{
	"level_ii", "level_iii", "level_iv", "equis",
	"same_day", "1_day", "2_day", "3_day", "rush",
	"reportable",
}

var timezoneCheckboxKeys = map[string]struct{}{
	"am": {}, "pt": {}, "mt": {}, "ct": {}, "et": {},
}

// headerKeywords pick out document-title keys the model reports from the top
// of the form.
var headerKeywords = []string{
	"chain_of_custody", "analytical_request_document", "coc_number",
}

// NormalizeKey folds a raw model key into the matcher's vocabulary:
// lowercase with spaces, slashes and '-' as '_'.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "/", "_")
	k = strings.ReplaceAll(k, "-", "_")
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	return strings.Trim(k, "_")
}

// NormalizeAnalysisCode uppercases an analysis code from a key remainder.
// "tph" keeps its conventional all-caps form explicitly since it is the one
// code the source documents write in mixed case.
func NormalizeAnalysisCode(code string) string {
	c := strings.Trim(code, "_")
	if strings.EqualFold(c, "tph") {
		return "TPH"
	}
	return strings.ToUpper(strings.ReplaceAll(c, "_", "-"))
}
