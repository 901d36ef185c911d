package classify

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

// DefaultIDPattern matches the sample-ID shapes the lab forms use: a short
// alpha prefix, optional separator, numeric run (LAJ-430, DW-01, YOT810).
const DefaultIDPattern = `^[A-Za-z]{1,4}[-_]?\d+$`

type Config struct {
	// IDPattern overrides the fallback regex used to recognize a trailing
	// token run as a sample ID when the run is not a known document ID.
	IDPattern string
}

// Classifier decides each field's kind and resolves embedded sample IDs.
// Known-ID resolution needs the document's full ID vocabulary, so Prime must
// run over every page envelope before Classify is called.
type Classifier struct {
	idRe *regexp.Regexp
	log  *slog.Logger

	knownIDs map[string]string // normalized -> display form
	idOrder  []string          // display forms, first-seen order
}

// Classified is one field after classification: kind, sample ID and analysis
// name filled in, plus the canonical attribute the aggregator assigns it to.
type Classified struct {
	Field llm.ExtractedField
	Attr  string // "" when the field has no scalar attribute slot
}

func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	pattern := cfg.IDPattern
	if pattern == "" {
		pattern = DefaultIDPattern
	}
	idRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile id pattern: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		idRe:     idRe,
		log:      logger,
		knownIDs: make(map[string]string),
	}, nil
}

// Prime collects the document's sample-ID vocabulary from the page
// envelopes: the explicit sample_ids lists, the mapping keys, and the values
// of customer_sample_id fields.
func (c *Classifier) Prime(envelopes []llm.ResponseEnvelope) {
	for _, env := range envelopes {
		for _, id := range env.SampleIDs {
			c.addKnownID(id)
		}
		for id := range env.SampleAnalysisMapping {
			c.addKnownID(id)
		}
		for _, f := range env.ExtractedFields {
			key := NormalizeKey(f.Key)
			if key == "sample_id" || key == "customer_sample_id" || strings.HasSuffix(key, "_sample_id") {
				c.addKnownID(f.Value)
			}
		}
	}
	c.log.Debug("classify.primed", "known_ids", len(c.idOrder))
}

func (c *Classifier) addKnownID(id string) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, constants.AbsentValue) {
		return
	}
	norm := NormalizeID(id)
	if _, ok := c.knownIDs[norm]; ok {
		return
	}
	c.knownIDs[norm] = norm
	c.idOrder = append(c.idOrder, norm)
}

// KnownIDs returns the document's sample IDs in first-seen order.
func (c *Classifier) KnownIDs() []string {
	out := make([]string, len(c.idOrder))
	copy(out, c.idOrder)
	return out
}

// Classify assigns a kind to one field and, for sample-scoped fields,
// resolves the embedded sample ID. Errors are advisory and never fatal: an
// AMBIGUOUS_SAMPLE_ID or UNMAPPABLE_FIELD error accompanies a still-usable
// Classified value routed to general information or the catch-all area.
func (c *Classifier) Classify(f llm.ExtractedField) (Classified, error) {
	key := NormalizeKey(f.Key)
	out := Classified{Field: f}

	// Analysis-checkbox families first: <code>_checkbox, analysis_<code>,
	// parameter_<code>. The checkbox form may carry a trailing sample ID
	// (8240_checkbox_laj_430).
	if code, remainder, ok := analysisCode(key); ok {
		out.Field.Kind = constants.KindAnalysisCheckbox
		out.Field.Value = string(constants.NormalizeCheckbox(f.Value))
		if remainder != "" {
			if id, ok := c.resolveSampleID(remainder); ok {
				out.Field.SampleID = id
			}
		} else if rest, id, found := c.splitTrailingID(code); found {
			code = rest
			out.Field.SampleID = id
		}
		out.Field.AnalysisName = NormalizeAnalysisCode(code)
		return out, nil
	}

	for i := range rules {
		remainder, ok := rules[i].match(key)
		if !ok {
			continue
		}
		out.Attr = rules[i].attr
		out.Field.Kind = rules[i].kind
		if rules[i].kind != constants.KindSampleField {
			return out, nil
		}

		// Customer-Sample-ID fields carry the ID as their value.
		if rules[i].attr == AttrCustomerSampleID {
			if id := strings.TrimSpace(f.Value); id != "" && !strings.EqualFold(id, constants.AbsentValue) {
				out.Field.SampleID = NormalizeID(id)
				return out, nil
			}
		}

		if remainder == "" {
			// Sample-scoped attribute with no embedded ID. The aggregator
			// can still place it when the document has exactly one sample.
			return out, nil
		}
		id, ok := c.resolveSampleID(remainder)
		if !ok {
			out.Attr = ""
			out.Field.Kind = constants.KindField
			return out, common.NewAppError(common.KindAmbiguousSampleID,
				fmt.Sprintf("cannot resolve sample id in key %q", f.Key), nil)
		}
		out.Field.SampleID = id
		return out, nil
	}

	// General checkboxes: deliverable levels, rush options, timezones.
	if isGeneralCheckbox(key) {
		out.Field.Kind = constants.KindCheckbox
		out.Field.Value = string(constants.NormalizeCheckbox(f.Value))
		return out, nil
	}

	for _, h := range headerKeywords {
		if strings.Contains(key, h) {
			out.Field.Kind = constants.KindHeader
			return out, nil
		}
	}

	// No pattern matched. If the key still ends in a known sample ID it is a
	// sample field we have no attribute slot for: keep it, flag it, and let
	// the aggregator park it in the record's catch-all area.
	if id, ok := c.trailingKnownID(key); ok {
		out.Field.Kind = constants.KindSampleField
		out.Field.SampleID = id
		return out, common.NewAppError(common.KindUnmappableField,
			fmt.Sprintf("key %q matches no known pattern", f.Key), nil)
	}

	out.Field.Kind = constants.KindField
	return out, nil
}

// resolveSampleID turns the leftover token run of a matched key into a
// sample ID. The longest trailing run that equals a known document ID wins;
// failing that, the full run must match the configured ID pattern.
func (c *Classifier) resolveSampleID(remainder string) (string, bool) {
	tokens := strings.Split(remainder, "_")
	for i := 0; i < len(tokens); i++ {
		cand := NormalizeID(strings.Join(tokens[i:], "-"))
		if id, ok := c.knownIDs[cand]; ok {
			return id, true
		}
	}
	for i := 0; i < len(tokens); i++ {
		run := strings.Join(tokens[i:], "-")
		if c.idRe.MatchString(run) {
			return NormalizeID(run), true
		}
	}
	return "", false
}

// splitTrailingID peels an embedded sample ID off the end of an analysis
// code: analysis_bod_dw_01 is the BOD checkbox for sample DW-01, not a code
// named BOD-DW-01. Known document IDs win over the pattern, and at least one
// leading token always survives as the code.
func (c *Classifier) splitTrailingID(code string) (string, string, bool) {
	tokens := strings.Split(code, "_")
	for i := 1; i < len(tokens); i++ {
		cand := NormalizeID(strings.Join(tokens[i:], "-"))
		if id, ok := c.knownIDs[cand]; ok {
			return strings.Join(tokens[:i], "_"), id, true
		}
	}
	for i := 1; i < len(tokens); i++ {
		run := strings.Join(tokens[i:], "-")
		if c.idRe.MatchString(run) {
			return strings.Join(tokens[:i], "_"), NormalizeID(run), true
		}
	}
	return code, "", false
}

// trailingKnownID finds the longest known-ID suffix of an unmatched key.
func (c *Classifier) trailingKnownID(key string) (string, bool) {
	tokens := strings.Split(key, "_")
	for i := 1; i < len(tokens); i++ {
		cand := NormalizeID(strings.Join(tokens[i:], "-"))
		if known, found := c.knownIDs[cand]; found {
			return known, true
		}
	}
	return "", false
}

func analysisCode(key string) (code, remainder string, ok bool) {
	if strings.HasSuffix(key, "_"+analysisSuffixCheckbox) {
		return strings.TrimSuffix(key, "_"+analysisSuffixCheckbox), "", true
	}
	if i := strings.Index(key, "_"+analysisSuffixCheckbox+"_"); i > 0 {
		return key[:i], key[i+len(analysisSuffixCheckbox)+2:], true
	}
	if strings.HasPrefix(key, analysisPrefixAnalysis+"_") {
		code = strings.TrimPrefix(key, analysisPrefixAnalysis+"_")
		// "analysis_request" is the section name, not a code.
		if code == "request" || code == "requests" {
			return "", "", false
		}
		return code, "", true
	}
	if strings.HasPrefix(key, analysisPrefixParam+"_") {
		return strings.TrimPrefix(key, analysisPrefixParam+"_"), "", true
	}
	return "", "", false
}

func isGeneralCheckbox(key string) bool {
	if _, ok := timezoneCheckboxKeys[key]; ok {
		return true
	}
	for _, kw := range generalCheckboxKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// NormalizeID renders a sample identifier in output form: uppercase with '-'
// separators.
func NormalizeID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, "_", "-")
	return id
}
