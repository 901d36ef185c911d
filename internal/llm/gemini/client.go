package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

// InvokePage implements llm.Invoker. It sends the prompt, the page's text
// layer, and the rendered page image in a single user turn and returns the
// model's raw text. Transient upstream failures are retried with the
// configured attempt budget; the caller deals with parsing.
func (c *Client) InvokePage(ctx context.Context, req llm.PageRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.invoke.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"page", req.Page,
		"text_len", len(req.Text),
		"image_bytes", len(req.ImagePNG),
	)

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt + "\n\n" + llm.BuildPageText(req.Page, req.Text)),
	}
	if len(req.ImagePNG) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: "image/png",
				Data:     req.ImagePNG,
			},
		})
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
	}

	var text string
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()

			resp, err := c.genai.Models.GenerateContent(callCtx, c.cfg.Model, contents, config)
			if err != nil {
				return err
			}
			if len(resp.Candidates) == 0 {
				return fmt.Errorf("no candidates in response")
			}
			text = resp.Text()
			if text == "" {
				return fmt.Errorf("empty candidate text")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxAttempts)),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("llm.invoke.retry",
				"req_id", rid, "page", req.Page, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		c.logger.Error("llm.invoke.failed",
			"req_id", rid, "page", req.Page, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.KindUpstreamFailure,
			fmt.Sprintf("model invocation failed for page %d", req.Page), err)
	}

	c.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"page", req.Page,
		"response_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
