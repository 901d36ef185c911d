package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/coc-extractor/internal/common"
)

const cleanEnvelope = `{
  "extracted_fields": [
    {"key": "project_name", "value": "Outfall Monitoring"},
    {"key": "matrix_LAJ-430", "value": "WW"}
  ],
  "sample_ids": ["LAJ-430"],
  "analysis_request": ["TPH", "BOD"],
  "sample_analysis_mapping": {"LAJ-430": {"TPH": "X", "BOD": ""}}
}`

func TestDecodeEnvelopeClean(t *testing.T) {
	env, _, err := DecodeEnvelope(cleanEnvelope, nil)
	require.NoError(t, err)
	require.Len(t, env.ExtractedFields, 2)
	assert.Equal(t, "project_name", env.ExtractedFields[0].Key)
	assert.Equal(t, []string{"LAJ-430"}, env.SampleIDs)
	assert.Equal(t, []string{"TPH", "BOD"}, env.AnalysisRequest)
	assert.Equal(t, "X", env.SampleAnalysisMapping["LAJ-430"]["TPH"])
}

func TestDecodeEnvelopeFencedEqualsUnfenced(t *testing.T) {
	fenced := "```json\n" + cleanEnvelope + "\n```"
	a, _, err := DecodeEnvelope(cleanEnvelope, nil)
	require.NoError(t, err)
	b, _, err := DecodeEnvelope(fenced, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeEnvelopeSurroundingProse(t *testing.T) {
	wrapped := "Here is the extraction you asked for:\n\n" + cleanEnvelope + "\n\nLet me know if you need anything else."
	env, _, err := DecodeEnvelope(wrapped, nil)
	require.NoError(t, err)
	assert.Len(t, env.ExtractedFields, 2)
}

func TestDecodeEnvelopeTrailingCommas(t *testing.T) {
	raw := `{
  "extracted_fields": [
    {"key": "project_name", "value": "Outfall Monitoring"},
  ],
  "sample_ids": ["LAJ-430",],
}`
	env, _, err := DecodeEnvelope(raw, nil)
	require.NoError(t, err)
	require.Len(t, env.ExtractedFields, 1)
	assert.Equal(t, []string{"LAJ-430"}, env.SampleIDs)
}

func TestDecodeEnvelopeTruncated(t *testing.T) {
	// Response cut off mid-object, as when the model hits a token ceiling.
	raw := `{
  "extracted_fields": [
    {"key": "project_name", "value": "Outfall Monitoring"},
    {"key": "matrix_LAJ-430", "value": "WW"},
    {"key": "sampl`
	env, _, err := DecodeEnvelope(raw, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(env.ExtractedFields), 2)
	assert.Equal(t, "project_name", env.ExtractedFields[0].Key)
	assert.Equal(t, "WW", env.ExtractedFields[1].Value)
}

func TestDecodeEnvelopeSalvage(t *testing.T) {
	// Broken beyond structural repair, but individual field objects survive.
	raw := `"extracted_fields" {"key": "client", "value": "Acme Water"} garbage
{"key": "matrix_LAJ-430", "value": "WW"} :::`
	env, doc, err := DecodeEnvelope(raw, nil)
	require.NoError(t, err)
	require.Len(t, env.ExtractedFields, 2)
	assert.Equal(t, "client", env.ExtractedFields[0].Key)
	assert.Equal(t, "matrix_LAJ-430", env.ExtractedFields[1].Key)
	// No whole document survived, so there is nothing to schema-check.
	assert.Nil(t, doc)
}

func TestDecodeEnvelopeEscapedStrings(t *testing.T) {
	raw := `{"extracted_fields": [{"key": "comment", "value": "say \"hold\" at 4°C"}]}`
	env, _, err := DecodeEnvelope(raw, nil)
	require.NoError(t, err)
	require.Len(t, env.ExtractedFields, 1)
	assert.Equal(t, `say "hold" at 4°C`, env.ExtractedFields[0].Value)
}

func TestDecodeEnvelopeUnrecoverable(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not read this page.",
		"[1, 2, 3]",
	} {
		_, _, err := DecodeEnvelope(raw, nil)
		require.Error(t, err, "input %q", raw)
		var ae *common.AppError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, common.KindMalformedResponse, ae.Kind)
	}
}

func TestStripEnvelopeText(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripEnvelopeText("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripEnvelopeText(`prose {"a":1} prose`))
	assert.Equal(t, "", StripEnvelopeText("no json here"))
}

func TestValidateEnvelopeSchema(t *testing.T) {
	schema := BuildEnvelopeJSONSchema()
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(cleanEnvelope)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"extracted_fields": [{"key": ""}]}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"unknown_section": true}`)))
}

func TestDecodedDocumentKeepsExtraSections(t *testing.T) {
	// Decoding silently drops sections the envelope doesn't declare, so the
	// schema check has to run against the returned document, where an
	// invented section is still visible.
	raw := `{
  "extracted_fields": [{"key": "project_name", "value": "Outfall Monitoring"}],
  "invented_section": {"anything": true}
}`
	env, doc, err := DecodeEnvelope(raw, nil)
	require.NoError(t, err)
	require.Len(t, env.ExtractedFields, 1)

	require.NotNil(t, doc)
	assert.Error(t, ValidateJSONAgainstSchema(BuildEnvelopeJSONSchema(), doc))
}
