package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
	"github.com/joseph-ayodele/coc-extractor/internal/classify"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
	"github.com/joseph-ayodele/coc-extractor/internal/render"
)

// PageRenderer is the document-rendering boundary.
type PageRenderer interface {
	Render(ctx context.Context, path string) ([]render.Page, error)
}

// Processor runs one document through the full pipeline: render pages,
// invoke the model per page, parse/repair each reply, classify every field,
// aggregate samples, and assemble the three-section response.
type Processor struct {
	Logger   *slog.Logger
	Renderer PageRenderer
	Invoker  llm.Invoker

	ClassifyConfig classify.Config
}

func NewProcessor(logger *slog.Logger, renderer PageRenderer, invoker llm.Invoker) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Renderer: renderer, Invoker: invoker}
}

// Process extracts the document at path. Per-page parse failures degrade
// gracefully: a page whose reply cannot be recovered is skipped. The whole
// request fails only on render errors, upstream invocation errors, or when
// no page yielded any fields and at least one reply was malformed.
func (p *Processor) Process(ctx context.Context, path string) (*aggregate.Response, error) {
	start := time.Now()

	pages, err := p.Renderer.Render(ctx, path)
	if err != nil {
		p.Logger.Error("pipeline.render.failed", "path", path, "err", err)
		return nil, common.NewAppError(common.KindInvalidInput, "document cannot be rendered", err)
	}
	p.Logger.Info("pipeline.render.ok", "path", path, "pages", len(pages))

	prompt := llm.BuildExtractionPrompt()
	schema := llm.BuildEnvelopeJSONSchema()

	envelopes := make([]llm.ResponseEnvelope, 0, len(pages))
	pageOf := make([]int, 0, len(pages))
	sawMalformed := false

	for _, page := range pages {
		raw, err := p.Invoker.InvokePage(ctx, llm.PageRequest{
			Prompt:   prompt,
			Page:     page.Number,
			Text:     page.Text,
			ImagePNG: page.PNG,
		})
		if err != nil {
			// Upstream failures abort the request; parse trouble does not.
			p.Logger.Error("pipeline.invoke.failed", "page", page.Number, "err", err)
			return nil, err
		}

		env, doc, err := llm.DecodeEnvelope(raw, p.Logger)
		if err != nil {
			sawMalformed = true
			p.Logger.Warn("pipeline.page_skipped",
				"page", page.Number, "err", err, "raw_len", len(raw))
			continue
		}
		// Schema-check the document the model actually produced, so extra
		// sections or malformed entries get logged before decoding drops them.
		if doc != nil {
			if verr := llm.ValidateJSONAgainstSchema(schema, doc); verr != nil {
				p.Logger.Warn("pipeline.envelope_schema_mismatch", "page", page.Number, "err", verr)
			}
		}
		envelopes = append(envelopes, env)
		pageOf = append(pageOf, page.Number)
	}

	fieldCount := 0
	for _, env := range envelopes {
		fieldCount += len(env.ExtractedFields)
	}
	if fieldCount == 0 && sawMalformed {
		return nil, common.NewAppError(common.KindMalformedResponse,
			"no page produced a recoverable model response", nil)
	}

	resp := p.assemble(envelopes, pageOf)

	p.Logger.Info("pipeline.ok",
		"path", path,
		"pages", len(pages),
		"fields", len(resp.ExtractedFields),
		"samples", len(resp.SampleDataInformation),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// assemble classifies the merged field stream and folds it into the final
// response.
func (p *Processor) assemble(envelopes []llm.ResponseEnvelope, pageOf []int) *aggregate.Response {
	classifier, err := classify.NewClassifier(p.ClassifyConfig, p.Logger)
	if err != nil {
		// Config was validated at startup; a bad pattern here is a
		// programming error, fall back to defaults.
		p.Logger.Error("pipeline.classifier_config", "err", err)
		classifier, _ = classify.NewClassifier(classify.Config{}, p.Logger)
	}
	classifier.Prime(envelopes)

	var classified []classify.Classified
	for i, env := range envelopes {
		for _, ef := range env.ExtractedFields {
			field := llm.ExtractedField{
				Key:   ef.Key,
				Value: ef.Value,
				Page:  pageOf[i],
			}
			cf, cerr := classifier.Classify(field)
			if cerr != nil {
				var ae *common.AppError
				if errors.As(cerr, &ae) {
					p.Logger.Warn("pipeline.classify_degraded",
						"kind", ae.Kind, "key", ef.Key, "page", pageOf[i])
				}
			}
			classified = append(classified, cf)
		}
	}

	in := aggregate.Input{
		Fields:            classified,
		SampleIDs:         mergedSampleIDs(envelopes),
		AnalysisRequest:   mergedAnalyses(envelopes),
		SampleAnalysisMap: mergedAnalysisMap(envelopes),
	}
	resp := aggregate.Assemble(in, p.Logger)
	return &resp
}

func mergedSampleIDs(envelopes []llm.ResponseEnvelope) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, env := range envelopes {
		for _, id := range env.SampleIDs {
			norm := classify.NormalizeID(id)
			if _, ok := seen[norm]; ok || norm == "" {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, norm)
		}
	}
	return out
}

func mergedAnalyses(envelopes []llm.ResponseEnvelope) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, env := range envelopes {
		for _, a := range env.AnalysisRequest {
			code := classify.NormalizeAnalysisCode(classify.NormalizeKey(a))
			if _, ok := seen[code]; ok || code == "" {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}

func mergedAnalysisMap(envelopes []llm.ResponseEnvelope) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, env := range envelopes {
		for sid, analyses := range env.SampleAnalysisMapping {
			norm := classify.NormalizeID(sid)
			if out[norm] == nil {
				out[norm] = make(map[string]string)
			}
			for code, val := range analyses {
				if _, ok := out[norm][code]; !ok {
					out[norm][code] = val
				}
			}
		}
	}
	return out
}
