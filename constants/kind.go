package constants

// FieldKind is the canonical classification for one extracted key/value pair.
type FieldKind string

// Stable values (these exact strings appear in the model contract and the response).
const (
	KindHeader           FieldKind = "header"            // document-structure heading
	KindField            FieldKind = "field"             // general, document-level field
	KindSampleField      FieldKind = "sample_field"      // scoped to one Customer Sample ID
	KindAnalysisCheckbox FieldKind = "analysis_checkbox" // (sample, analysis code) checkbox
	KindCheckbox         FieldKind = "checkbox"          // document-level checkbox
)

// SampleScoped reports whether fields of this kind must carry a sample ID.
func (k FieldKind) SampleScoped() bool {
	return k == KindSampleField || k == KindAnalysisCheckbox
}

// CheckboxLike reports whether values of this kind are normalized to the
// two-state checkbox vocabulary.
func (k FieldKind) CheckboxLike() bool {
	return k == KindCheckbox || k == KindAnalysisCheckbox
}
