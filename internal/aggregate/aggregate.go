package aggregate

import (
	"log/slog"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/classify"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

// Input is the classified field stream plus the document-level structures
// merged from every page envelope.
type Input struct {
	Fields            []classify.Classified
	SampleIDs         []string // first-seen order across the document
	AnalysisRequest   []string
	SampleAnalysisMap map[string]map[string]string
}

// Assemble folds the classified fields into the final three-section
// response: extracted_fields verbatim, general_information as the view of
// fields with no sample scope, and sample_data_information as one aggregated
// record per sample in first-occurrence order.
func Assemble(in Input, logger *slog.Logger) Response {
	if logger == nil {
		logger = slog.Default()
	}

	order, index := sampleOrder(in)
	fields := resolveUnscoped(in.Fields, order)

	extracted := make([]llm.ExtractedField, 0, len(fields))
	general := make([]llm.ExtractedField, 0, len(fields))
	for _, cf := range fields {
		extracted = append(extracted, cf.Field)
		if cf.Field.SampleID == "" {
			general = append(general, cf.Field)
		}
	}

	keys := make([]string, 0, len(fields))
	for _, cf := range fields {
		keys = append(keys, cf.Field.Key)
	}
	format := DetectFormat(keys)

	var entries []SampleEntry
	switch format {
	case constants.FormatRCWorkOrder:
		entries = assembleRC(fields, order)
	default:
		entries = assembleStandard(fields, order, index, in.AnalysisRequest, in.SampleAnalysisMap)
	}

	logger.Info("aggregate.assembled",
		"format", string(format),
		"fields", len(extracted),
		"general", len(general),
		"samples", len(entries),
	)

	return Response{
		ExtractedFields:       extracted,
		GeneralInformation:    general,
		SampleDataInformation: entries,
	}
}

// sampleOrder merges the envelope-level sample IDs with IDs first seen on
// classified fields, preserving first-occurrence order.
func sampleOrder(in Input) ([]string, map[string]int) {
	var order []string
	index := make(map[string]int)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := index[id]; ok {
			return
		}
		index[id] = len(order)
		order = append(order, id)
	}
	for _, id := range in.SampleIDs {
		add(classify.NormalizeID(id))
	}
	for _, cf := range in.Fields {
		add(cf.Field.SampleID)
	}
	return order, index
}

// resolveUnscoped handles sample-kind fields that matched an attribute but
// carried no embedded ID: in a single-sample document they belong to that
// sample; otherwise they cannot be attributed and drop back to general
// information. Demoted analysis checkboxes keep their code so the R&C
// assembler can still fan them out across the work order.
func resolveUnscoped(fields []classify.Classified, order []string) []classify.Classified {
	out := make([]classify.Classified, len(fields))
	copy(out, fields)
	for i := range out {
		if !out[i].Field.Kind.SampleScoped() || out[i].Field.SampleID != "" {
			continue
		}
		if len(order) == 1 {
			out[i].Field.SampleID = order[0]
			continue
		}
		switch out[i].Field.Kind {
		case constants.KindSampleField:
			out[i].Field.Kind = constants.KindField
			out[i].Attr = ""
		case constants.KindAnalysisCheckbox:
			out[i].Field.Kind = constants.KindCheckbox
		}
	}
	return out
}

func assembleStandard(fields []classify.Classified, order []string, index map[string]int,
	analysisRequest []string, analysisMap map[string]map[string]string) []SampleEntry {

	records := make([]*SampleRecord, len(order))
	for i, id := range order {
		records[i] = newSampleRecord(id)
	}
	recordFor := func(id string) *SampleRecord {
		if i, ok := index[id]; ok {
			return records[i]
		}
		return nil
	}

	// Every code the document enumerates starts unchecked on every sample;
	// mapping tables and checkbox fields then flip the checked ones.
	for _, code := range analysisRequest {
		code = classify.NormalizeAnalysisCode(code)
		if code == "" {
			continue
		}
		for _, rec := range records {
			rec.AnalysisRequest[code] = constants.Unchecked
		}
	}

	// Enumerated analysis states from the per-page mapping tables.
	for sid, analyses := range analysisMap {
		rec := recordFor(classify.NormalizeID(sid))
		if rec == nil {
			continue
		}
		for code, raw := range analyses {
			rec.AnalysisRequest[classify.NormalizeAnalysisCode(code)] = constants.NormalizeCheckbox(raw)
		}
	}

	for _, cf := range fields {
		rec := recordFor(cf.Field.SampleID)
		if rec == nil {
			continue
		}
		switch cf.Field.Kind {
		case constants.KindAnalysisCheckbox:
			if cf.Field.AnalysisName != "" {
				rec.AnalysisRequest[cf.Field.AnalysisName] = constants.NormalizeCheckbox(cf.Field.Value)
			}
		case constants.KindSampleField:
			assignScalar(rec, cf)
		}
	}

	for _, rec := range records {
		splitCombinedAttrs(rec)
	}

	entries := make([]SampleEntry, len(records))
	for i, rec := range records {
		entries[i] = rec
	}
	return entries
}

// assignScalar fills the record attribute named by the classifier; the first
// value wins and later duplicates are ignored. Attribute-less sample fields
// land in the catch-all area.
func assignScalar(rec *SampleRecord, cf classify.Classified) {
	set := func(dst *string) {
		if *dst == constants.AbsentValue {
			*dst = cf.Field.Value
		}
	}
	switch cf.Attr {
	case classify.AttrCustomerSampleID:
		// Identity field; the record is already keyed by it.
	case classify.AttrMatrix:
		set(&rec.Matrix)
	case classify.AttrCompGrab:
		set(&rec.CompGrab)
	case classify.AttrStartDate:
		set(&rec.StartDate)
	case classify.AttrStartTime:
		set(&rec.StartTime)
	case classify.AttrEndDate:
		set(&rec.EndDate)
	case classify.AttrEndTime:
		set(&rec.EndTime)
	case classify.AttrContainers:
		set(&rec.Containers)
	case classify.AttrResidualResult:
		set(&rec.ResidualResult)
	case classify.AttrResidualUnits:
		set(&rec.ResidualUnits)
	case classify.AttrSampleComment:
		set(&rec.SampleComment)
	default:
		if rec.Additional == nil {
			rec.Additional = make(map[string]string)
		}
		if _, ok := rec.Additional[cf.Field.Key]; !ok {
			rec.Additional[cf.Field.Key] = cf.Field.Value
		}
	}
}

// splitCombinedAttrs untangles values the model merged into one cell: a
// matrix cell carrying the grab code, or a result cell carrying its units.
func splitCombinedAttrs(rec *SampleRecord) {
	if rec.Matrix != constants.AbsentValue && rec.CompGrab == constants.AbsentValue {
		if m, g, ok := SplitCombined(rec.Matrix); ok {
			rec.Matrix = m
			rec.CompGrab = g
		}
	}
	if rec.ResidualResult != constants.AbsentValue && rec.ResidualUnits == constants.AbsentValue {
		if r, u, ok := SplitCombined(rec.ResidualResult); ok {
			rec.ResidualResult = r
			rec.ResidualUnits = u
		}
	}
}

func assembleRC(fields []classify.Classified, order []string) []SampleEntry {
	records := make([]*RCSampleRecord, len(order))
	index := make(map[string]int, len(order))
	for i, id := range order {
		records[i] = newRCSampleRecord(id)
		index[id] = i
	}

	// Per-sample metadata gathered from the R&C columns; copied into every
	// parameter entry of that sample afterwards.
	meta := make([]ParameterMetadata, len(order))
	for i := range meta {
		meta[i] = ParameterMetadata{
			Filtered:        constants.AbsentValue,
			Cooled:          constants.AbsentValue,
			ContainerType:   constants.AbsentValue,
			ContainerVolume: constants.AbsentValue,
			SampleType:      constants.AbsentValue,
			SampleSource:    constants.AbsentValue,
		}
	}

	setIf := func(dst *string, v string) {
		if *dst == constants.AbsentValue {
			*dst = v
		}
	}

	for _, cf := range fields {
		switch cf.Field.Kind {
		case constants.KindField:
			// Document-level totals apply to every sample.
			if cf.Attr == classify.AttrRCTotalContainers {
				for _, rec := range records {
					setIf(&rec.TotalContainers, cf.Field.Value)
				}
			}
		case constants.KindSampleField:
			i, ok := index[cf.Field.SampleID]
			if !ok {
				continue
			}
			rec := records[i]
			switch cf.Attr {
			case classify.AttrRCWorkOrder:
				setIf(&rec.WorkOrder, cf.Field.Value)
			case classify.AttrRCDate, classify.AttrEndDate:
				setIf(&rec.Date, cf.Field.Value)
			case classify.AttrRCTime, classify.AttrEndTime:
				setIf(&rec.Time, cf.Field.Value)
			case classify.AttrRCDescription:
				rec.Description = cf.Field.Value
			case classify.AttrRCTotalContainers:
				setIf(&rec.TotalContainers, cf.Field.Value)
			case classify.AttrRCFiltered:
				setIf(&meta[i].Filtered, cf.Field.Value)
			case classify.AttrRCCooled:
				setIf(&meta[i].Cooled, cf.Field.Value)
			case classify.AttrRCContainerType:
				setIf(&meta[i].ContainerType, cf.Field.Value)
			case classify.AttrRCContainerVolume:
				setIf(&meta[i].ContainerVolume, cf.Field.Value)
			case classify.AttrRCSampleType:
				setIf(&meta[i].SampleType, cf.Field.Value)
			case classify.AttrRCSampleSource:
				setIf(&meta[i].SampleSource, cf.Field.Value)
			case classify.AttrCustomerSampleID:
				// Identity field.
			default:
				if rec.Additional == nil {
					rec.Additional = make(map[string]string)
				}
				if _, ok := rec.Additional[cf.Field.Key]; !ok {
					rec.Additional[cf.Field.Key] = cf.Field.Value
				}
			}
		}
	}

	// Parameter checkboxes. A parameter scoped to one sample stays with it;
	// an unscoped parameter applies to every sample on the work order.
	apply := func(i int, code string, state constants.CheckboxState) {
		m := meta[i]
		m.State = state
		if existing, ok := records[i].Parameters[code]; ok && existing.State == constants.Checked {
			return
		}
		records[i].Parameters[code] = m
	}
	for _, cf := range fields {
		if !cf.Field.Kind.CheckboxLike() || cf.Field.AnalysisName == "" {
			continue
		}
		state := constants.NormalizeCheckbox(cf.Field.Value)
		if i, ok := index[cf.Field.SampleID]; ok {
			apply(i, cf.Field.AnalysisName, state)
			continue
		}
		for i := range records {
			apply(i, cf.Field.AnalysisName, state)
		}
	}

	entries := make([]SampleEntry, len(records))
	for i, rec := range records {
		entries[i] = rec
	}
	return entries
}
