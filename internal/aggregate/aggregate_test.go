package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/classify"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

func classifyAll(t *testing.T, c *classify.Classifier, fields []llm.ExtractedField) []classify.Classified {
	t.Helper()
	out := make([]classify.Classified, 0, len(fields))
	for _, f := range fields {
		cf, _ := c.Classify(f) // advisory errors are expected in some cases
		out = append(out, cf)
	}
	return out
}

func newPrimedClassifier(t *testing.T, ids ...string) *classify.Classifier {
	t.Helper()
	c, err := classify.NewClassifier(classify.Config{}, nil)
	require.NoError(t, err)
	c.Prime([]llm.ResponseEnvelope{{SampleIDs: ids}})
	return c
}

func TestAssembleOneRecordPerSample(t *testing.T) {
	c := newPrimedClassifier(t)
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "sample_comment_laj_430", Value: "Okay"},
		{Key: "matrix_laj_430", Value: "N"},
	})

	resp := Assemble(Input{Fields: fields}, nil)

	require.Len(t, resp.SampleDataInformation, 1)
	rec, ok := resp.SampleDataInformation[0].(*SampleRecord)
	require.True(t, ok)
	assert.Equal(t, "LAJ-430", rec.CustomerSampleID)
	assert.Equal(t, "Okay", rec.SampleComment)
	assert.Equal(t, "N", rec.Matrix)
}

func TestAssembleUnionAndDisjoint(t *testing.T) {
	c := newPrimedClassifier(t, "LAJ-430")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "project_name", Value: "Outfall Monitoring"},
		{Key: "matrix_laj_430", Value: "WW"},
		{Key: "ph_reading_laj_430", Value: "7.2"}, // unmappable, sample-scoped
		{Key: "chain_of_custody_record", Value: "NIL"},
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"LAJ-430"}}, nil)

	assert.Len(t, resp.ExtractedFields, 4)

	scoped := 0
	for _, f := range resp.ExtractedFields {
		if f.SampleID != "" {
			scoped++
		}
	}
	// Every field is in exactly one of the two views.
	assert.Equal(t, len(resp.ExtractedFields), len(resp.GeneralInformation)+scoped)
	for _, f := range resp.GeneralInformation {
		assert.Empty(t, f.SampleID)
	}

	// The unmappable field was not dropped: it sits in the catch-all area.
	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, "7.2", rec.Additional["ph_reading_laj_430"])
}

func TestAssembleDashCheckboxBecomesUnchecked(t *testing.T) {
	c := newPrimedClassifier(t, "DW-01")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "analysis_bod_dw_01", Value: "-"},
	})

	resp := Assemble(Input{
		Fields:    fields,
		SampleIDs: []string{"DW-01"},
		SampleAnalysisMap: map[string]map[string]string{
			"DW-01": {"TPH": "X"},
		},
	}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, constants.Checked, rec.AnalysisRequest["TPH"])
	assert.Equal(t, constants.Unchecked, rec.AnalysisRequest["BOD"])
	for _, state := range rec.AnalysisRequest {
		assert.Contains(t, []constants.CheckboxState{constants.Checked, constants.Unchecked}, state)
	}
}

func TestAssembleSeedsEnumeratedAnalyses(t *testing.T) {
	// Codes listed in the document's analysis request start unchecked on
	// every sample even when no checkbox field mentions them.
	resp := Assemble(Input{
		SampleIDs:       []string{"LAJ-430"},
		AnalysisRequest: []string{"TPH", "BOD"},
	}, nil)

	require.Len(t, resp.SampleDataInformation, 1)
	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, constants.Unchecked, rec.AnalysisRequest["TPH"])
	assert.Equal(t, constants.Unchecked, rec.AnalysisRequest["BOD"])
}

func TestAssembleEnumeratedSeedLosesToCheckedState(t *testing.T) {
	c := newPrimedClassifier(t, "LAJ-430")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "8240_checkbox_laj_430", Value: "X"},
	})

	resp := Assemble(Input{
		Fields:          fields,
		SampleIDs:       []string{"LAJ-430"},
		AnalysisRequest: []string{"8240", "TPH"},
	}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, constants.Checked, rec.AnalysisRequest["8240"])
	assert.Equal(t, constants.Unchecked, rec.AnalysisRequest["TPH"])
}

func TestAssembleUnscopedCheckboxMultiSampleDemoted(t *testing.T) {
	c := newPrimedClassifier(t, "LAJ-430", "DW-01")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "8240_checkbox", Value: "X"}, // no sample, two candidates
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"LAJ-430", "DW-01"}}, nil)

	// The checkbox cannot be attributed, so it surfaces as a document-level
	// checkbox in general information rather than a sample-scoped field with
	// no sample.
	require.Len(t, resp.ExtractedFields, 1)
	assert.Equal(t, constants.KindCheckbox, resp.ExtractedFields[0].Kind)
	require.Len(t, resp.GeneralInformation, 1)
	for _, f := range resp.ExtractedFields {
		if f.SampleID == "" {
			assert.False(t, f.Kind.SampleScoped())
		}
	}
	for _, e := range resp.SampleDataInformation {
		rec := e.(*SampleRecord)
		assert.NotContains(t, rec.AnalysisRequest, "8240")
	}
}

func TestAssembleMatrixGrabSplit(t *testing.T) {
	c := newPrimedClassifier(t, "DW-01")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "matrix_dw_01", Value: "DW G"},
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"DW-01"}}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, "DW", rec.Matrix)
	assert.Equal(t, "G", rec.CompGrab)
}

func TestAssembleMatrixSplitLeavesUnmatchedAlone(t *testing.T) {
	c := newPrimedClassifier(t, "DW-01")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "matrix_dw_01", Value: "surface water grab"}, // three tokens
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"DW-01"}}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, "surface water grab", rec.Matrix)
	assert.Equal(t, constants.AbsentValue, rec.CompGrab)
}

func TestAssembleResultUnitsSplit(t *testing.T) {
	c := newPrimedClassifier(t, "DW-01")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "residual_chloride_result_dw_01", Value: "0.5 mg/L"},
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"DW-01"}}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, "0.5", rec.ResidualResult)
	assert.Equal(t, "mg/L", rec.ResidualUnits)
}

func TestAssembleSingleSampleAdoptsUnscopedFields(t *testing.T) {
	c := newPrimedClassifier(t, "LAJ-430")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "matrix", Value: "WW"}, // no embedded ID
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"LAJ-430"}}, nil)

	rec := resp.SampleDataInformation[0].(*SampleRecord)
	assert.Equal(t, "WW", rec.Matrix)
}

func TestAssembleSampleOrderIsFirstSeen(t *testing.T) {
	c := newPrimedClassifier(t, "YOT-810", "LAJ-430")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "matrix_dw_01", Value: "DW"}, // new ID from a field key
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"YOT-810", "LAJ-430"}}, nil)

	require.Len(t, resp.SampleDataInformation, 3)
	ids := make([]string, 0, 3)
	for _, e := range resp.SampleDataInformation {
		ids = append(ids, e.(*SampleRecord).CustomerSampleID)
	}
	assert.Equal(t, []string{"YOT-810", "LAJ-430", "DW-01"}, ids)
}

func TestDetectFormatRCWorkOrder(t *testing.T) {
	// The work-order name alone is decisive.
	assert.Equal(t, constants.FormatRCWorkOrder,
		DetectFormat([]string{"r_and_c_work_order_ts101", "project_name"}))

	// Generic column names need three distinct hits.
	assert.Equal(t, constants.FormatStandard,
		DetectFormat([]string{"sample_description_ts101", "yr_date_ts101"}))
	assert.Equal(t, constants.FormatRCWorkOrder,
		DetectFormat([]string{"sample_description_ts101", "yr_date_ts101", "filtered_yes_no_ts101"}))

	assert.Equal(t, constants.FormatStandard,
		DetectFormat([]string{"matrix_laj_430", "sample_comment_laj_430"}))
}

func TestAssembleRCWorkOrderShape(t *testing.T) {
	c := newPrimedClassifier(t, "TS101", "TS102")
	fields := classifyAll(t, c, []llm.ExtractedField{
		{Key: "r_and_c_work_order_ts101", Value: "WO-2291"},
		{Key: "yr_date_ts101", Value: "24-03-11"},
		{Key: "filtered_yes_no_ts101", Value: "Y"},
		{Key: "cooled_yes_no_ts101", Value: "N"},
		{Key: "total_number_of_containers", Value: "6"},
		{Key: "parameter_8260", Value: "X"},
		{Key: "parameter_8270", Value: ""},
	})

	resp := Assemble(Input{Fields: fields, SampleIDs: []string{"TS101", "TS102"}}, nil)

	require.Len(t, resp.SampleDataInformation, 2)
	rec, ok := resp.SampleDataInformation[0].(*RCSampleRecord)
	require.True(t, ok)
	assert.Equal(t, "WO-2291", rec.WorkOrder)
	assert.Equal(t, "24-03-11", rec.Date)
	assert.Equal(t, "TS101", rec.Description)
	assert.Equal(t, "6", rec.TotalContainers)

	// Unscoped parameter checkboxes fan out to every sample, carrying the
	// sample's own metadata columns.
	p, ok := rec.Parameters["8260"]
	require.True(t, ok)
	assert.Equal(t, constants.Checked, p.State)
	assert.Equal(t, "Y", p.Filtered)
	assert.Equal(t, "N", p.Cooled)

	p, ok = rec.Parameters["8270"]
	require.True(t, ok)
	assert.Equal(t, constants.Unchecked, p.State)

	// The second sample shares the document-level totals but not the first
	// sample's metadata.
	rec2 := resp.SampleDataInformation[1].(*RCSampleRecord)
	assert.Equal(t, "6", rec2.TotalContainers)
	assert.Equal(t, constants.AbsentValue, rec2.Parameters["8260"].Filtered)
}

func TestCheckboxNormalizationIdempotent(t *testing.T) {
	for _, v := range []string{"checked", "unchecked"} {
		assert.Equal(t, constants.CheckboxState(v), constants.NormalizeCheckbox(v))
	}
}

func TestSplitCombined(t *testing.T) {
	m, g, ok := SplitCombined("DW G")
	require.True(t, ok)
	assert.Equal(t, "DW", m)
	assert.Equal(t, "G", g)

	_, _, ok = SplitCombined("DW")
	assert.False(t, ok)
	_, _, ok = SplitCombined("a b c")
	assert.False(t, ok)
}
