package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/coc-extractor/internal/common"
)

var (
	reFenceOpen    = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	reFenceClose   = regexp.MustCompile("\\s*```\\s*$")
	reTrailingComa = regexp.MustCompile(`,\s*([}\]])`)
	reFieldObject  = regexp.MustCompile(`\{\s*"key"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"value"\s*:\s*"((?:[^"\\]|\\.)*)"\s*\}`)
)

// DecodeEnvelope turns raw model text into a ResponseEnvelope. Model output
// is rarely clean JSON: it arrives fenced, wrapped in prose, with trailing
// commas, or truncated mid-structure. Each repair step is tried in order,
// from cheapest to most destructive; decoding stops at the first step that
// yields valid JSON. When nothing works it falls back to salvaging
// individual {"key": ..., "value": ...} objects before giving up.
//
// The second return is the JSON document that decoded, with the model's own
// structure intact, so callers can schema-check what the model actually
// said. It is nil on the salvage path, where no whole document survived.
func DecodeEnvelope(raw string, logger *slog.Logger) (ResponseEnvelope, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	candidate := StripEnvelopeText(raw)
	if candidate == "" {
		return ResponseEnvelope{}, nil, common.NewAppError(common.KindMalformedResponse,
			"model returned no JSON object", nil)
	}

	repairs := []struct {
		name string
		fn   func(string) string
	}{
		{"verbatim", func(s string) string { return s }},
		{"trailing_commas", stripTrailingCommas},
		{"balance_brackets", balanceBrackets},
		{"truncate_incomplete", func(s string) string { return balanceBrackets(truncateToComplete(s)) }},
	}

	var env ResponseEnvelope
	for _, r := range repairs {
		fixed := r.fn(candidate)
		if fixed == "" {
			continue
		}
		if err := json.Unmarshal([]byte(fixed), &env); err == nil {
			if r.name != "verbatim" {
				logger.Warn("llm.parse.repaired", "step", r.name, "raw_bytes", len(raw))
			}
			return env, []byte(fixed), nil
		}
	}

	// Last resort: pull whatever complete field objects survived.
	if fields := salvageFields(candidate); len(fields) > 0 {
		logger.Warn("llm.parse.salvaged", "fields", len(fields), "raw_bytes", len(raw))
		return ResponseEnvelope{ExtractedFields: fields}, nil, nil
	}

	return ResponseEnvelope{}, nil, common.NewAppError(common.KindMalformedResponse,
		"model response is not recoverable JSON", fmt.Errorf("raw length %d", len(raw)))
}

// StripEnvelopeText removes markdown fences and surrounding prose, keeping
// the span from the first '{' to the last '}'. Returns "" when no object
// delimiter exists at all.
func StripEnvelopeText(raw string) string {
	s := strings.TrimSpace(raw)
	s = reFenceOpen.ReplaceAllString(s, "")
	s = reFenceClose.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, '}')
	if end > start {
		return s[start : end+1]
	}
	// No closing brace: keep the tail and let bracket balancing finish it.
	return s[start:]
}

func stripTrailingCommas(s string) string {
	return reTrailingComa.ReplaceAllString(s, "$1")
}

// balanceBrackets appends the closers an interrupted response left open. It
// walks the string tracking string literals and escapes so braces inside
// values don't count.
func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		s += `"`
	}
	out := []byte(s)
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i])
	}
	return stripTrailingCommas(string(out))
}

// truncateToComplete cuts a truncated response back to the last position
// where every value was complete: the last ',' or closer at nesting depth
// that leaves no dangling key.
func truncateToComplete(s string) string {
	inString := false
	escaped := false
	last := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '}' || c == ']':
			last = i
		}
	}
	if last < 0 {
		return ""
	}
	return s[:last+1]
}

func salvageFields(s string) []EnvelopeField {
	matches := reFieldObject.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	fields := make([]EnvelopeField, 0, len(matches))
	for _, m := range matches {
		var key, value string
		// The captures are raw JSON string bodies; decode their escapes.
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &key); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(`"`+m[2]+`"`), &value); err != nil {
			continue
		}
		if key == "" {
			continue
		}
		fields = append(fields, EnvelopeField{Key: key, Value: value})
	}
	return fields
}
