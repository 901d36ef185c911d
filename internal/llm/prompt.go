package llm

import (
	"strconv"
	"strings"
)

// BuildExtractionPrompt composes the per-page instruction block. The same
// prompt is sent for every page; the page image and text vary.
func BuildExtractionPrompt() string {
	parts := []string{
		"You are a chain-of-custody (COC) lab form parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Extract EVERY visible key/value pair from the form page into 'extracted_fields'.",
		"Keys must be snake_case versions of the printed labels (e.g. 'Project Name' -> 'project_name').",

		// Sample-scoped fields keep the sample identifier in the key so rows
		// can be regrouped downstream.
		"For fields that belong to a specific sample row, append the sample identifier to the key " +
			"(e.g. 'matrix_LAJ-430', 'collected_start_date_YOT-810').",
		"List every sample identifier found on the page under 'sample_ids', exactly as printed.",

		// Analysis checkboxes:
		"List the requested analyses (column headers of the analysis grid) under 'analysis_request'.",
		"For each sample row, record the checkbox cell of each analysis under 'sample_analysis_mapping': " +
			"{\"<sample_id>\": {\"<analysis>\": \"<cell text>\"}}.",
		"Report checkbox cells verbatim: 'X', '✓', a blank, a dash, whatever is printed. Do not interpret them.",

		// Formatting hygiene:
		"If a cell is empty, use the string \"NIL\" as its value.",
		"Never output null. If a section is not present on the page, omit it.",
		"Do not invent fields that are not visible on the page.",
	}
	return strings.Join(parts, " ")
}

// BuildPageText packages the page's machine text as a hint alongside the
// image. Scanned pages often have no text layer; the image alone is fine.
func BuildPageText(page int, text string) string {
	var b strings.Builder
	b.WriteString("Page ")
	b.WriteString(strconv.Itoa(page))
	b.WriteString(" of the document.\n")

	t := strings.TrimSpace(text)
	if t == "" {
		b.WriteString("No machine-readable text layer; read the attached page image.\n")
		return b.String()
	}

	b.WriteString("\nText layer (first ~6k chars):\n")
	if len(t) > 6000 {
		b.WriteString(t[:6000])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(t)
	}
	return b.String()
}
