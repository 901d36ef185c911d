package llm

import (
	"context"

	"github.com/joseph-ayodele/coc-extractor/constants"
)

// ExtractedField is a single key/value pair recovered from one document page.
// Kind and Page are filled in during parsing; SampleID and AnalysisName are
// populated later by classification.
type ExtractedField struct {
	Key   string              `json:"key"`
	Value string              `json:"value"`
	Kind  constants.FieldKind `json:"kind,omitempty"`
	Page  int                 `json:"page,omitempty"`

	SampleID     string `json:"sample_id,omitempty"`
	AnalysisName string `json:"analysis_name,omitempty"`
}

// ResponseEnvelope is the normalized shape we want back from the model for a
// single page. Every section is optional: a page may carry only header
// fields, only a sample table, or nothing at all.
type ResponseEnvelope struct {
	ExtractedFields []EnvelopeField `json:"extracted_fields,omitempty"`
	SampleIDs       []string        `json:"sample_ids,omitempty"`
	AnalysisRequest []string        `json:"analysis_request,omitempty"`

	// SampleAnalysisMapping maps a sample identifier to the checkbox values
	// of each requested analysis for that sample.
	SampleAnalysisMapping map[string]map[string]string `json:"sample_analysis_mapping,omitempty"`
}

// EnvelopeField is the raw pair as the model emits it, before any
// classification.
type EnvelopeField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PageRequest carries everything the invoker needs for one page: the prompt,
// the page's plain text (may be empty for scanned documents), and the
// rendered page image.
type PageRequest struct {
	Prompt   string
	Page     int
	Text     string
	ImagePNG []byte
}

// Invoker is the interface the pipeline depends on for model calls.
type Invoker interface {
	InvokePage(ctx context.Context, req PageRequest) (string, error)
}
