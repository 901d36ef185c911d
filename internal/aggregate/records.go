package aggregate

import (
	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

// SampleEntry is one aggregated row of sample_data_information. Exactly two
// shapes exist: the standard record and the R&C Work Order record; the shape
// is chosen per document, never per sample.
type SampleEntry interface {
	sampleEntry()
}

// SampleRecord is the standard aggregated view of one physical sample row.
// Scalar attributes default to the absent marker, which is distinct from an
// empty string.
type SampleRecord struct {
	CustomerSampleID string `json:"Customer Sample ID"`
	Matrix           string `json:"Matrix"`
	CompGrab         string `json:"Comp/Grab"`
	StartDate        string `json:"Composite Start Date"`
	StartTime        string `json:"Composite Start Time"`
	EndDate          string `json:"Composite or Collected End Date"`
	EndTime          string `json:"Composite or Collected End Time"`
	Containers       string `json:"# Cont"`
	ResidualResult   string `json:"Residual Chloride Result"`
	ResidualUnits    string `json:"Residual Chloride Units"`
	SampleComment    string `json:"Sample Comment"`

	// AnalysisRequest maps analysis code to its checkbox state. Codes the
	// document never enumerates are absent, not defaulted.
	AnalysisRequest map[string]constants.CheckboxState `json:"analysis_request"`

	// Additional holds sample-scoped fields no known pattern claimed.
	Additional map[string]string `json:"additional,omitempty"`
}

func (*SampleRecord) sampleEntry() {}

func newSampleRecord(id string) *SampleRecord {
	return &SampleRecord{
		CustomerSampleID: id,
		Matrix:           constants.AbsentValue,
		CompGrab:         constants.AbsentValue,
		StartDate:        constants.AbsentValue,
		StartTime:        constants.AbsentValue,
		EndDate:          constants.AbsentValue,
		EndTime:          constants.AbsentValue,
		Containers:       constants.AbsentValue,
		ResidualResult:   constants.AbsentValue,
		ResidualUnits:    constants.AbsentValue,
		SampleComment:    constants.AbsentValue,
		AnalysisRequest:  make(map[string]constants.CheckboxState),
	}
}

// ParameterMetadata is the auxiliary attribute record of one requested
// parameter in the R&C Work Order shape.
type ParameterMetadata struct {
	State           constants.CheckboxState `json:"state"`
	Filtered        string                  `json:"Filtered (Y/N)"`
	Cooled          string                  `json:"Cooled (Y/N)"`
	ContainerType   string                  `json:"Container Type (Plastic (P) / Glass (G))"`
	ContainerVolume string                  `json:"Container Volume in mL"`
	SampleType      string                  `json:"Sample Type (Grab (G) / Composite (C))"`
	SampleSource    string                  `json:"Sample Source (WW, GW, DW, SW, S, Others)"`
}

// RCSampleRecord is the parameter-metadata shape used for R&C Work Order
// documents.
type RCSampleRecord struct {
	WorkOrder       string `json:"R & C Work Order"`
	Date            string `json:"YR__ DATE"`
	Time            string `json:"TIME"`
	Description     string `json:"SAMPLE DESCRIPTION"`
	TotalContainers string `json:"Total Number of Containers"`

	Parameters map[string]ParameterMetadata `json:"parameters"`

	Additional map[string]string `json:"additional,omitempty"`
}

func (*RCSampleRecord) sampleEntry() {}

func newRCSampleRecord(id string) *RCSampleRecord {
	return &RCSampleRecord{
		WorkOrder:       constants.AbsentValue,
		Date:            constants.AbsentValue,
		Time:            constants.AbsentValue,
		Description:     id,
		TotalContainers: constants.AbsentValue,
		Parameters:      make(map[string]ParameterMetadata),
	}
}

// Response is the final three-section document. No other top-level sections
// are emitted.
type Response struct {
	ExtractedFields       []llm.ExtractedField `json:"extracted_fields"`
	GeneralInformation    []llm.ExtractedField `json:"general_information"`
	SampleDataInformation []SampleEntry        `json:"sample_data_information"`
}
