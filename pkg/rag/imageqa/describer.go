package imageqa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"
	"ai-chatstream-be/pkg/utils"
)

const moduleName = "ImageQA"

var ErrNoReadableImages = errors.New("no readable images")

// Describer answers the question over image candidates with a multimodal
// model, so their content can be used as text grounding.
type Describer struct {
	llm llm.LLMProvider
	log logger.ILogger
}

func NewDescriber(provider llm.LLMProvider, log logger.ILogger) *Describer {
	return &Describer{llm: provider, log: log}
}

// Describe sends every image in one call. A non-empty answer replaces the
// text of all image candidates. On any failure the candidates are returned
// unchanged together with the error.
func (d *Describer) Describe(ctx context.Context, question string, images []store.Candidate) ([]store.Candidate, error) {
	if len(images) == 0 {
		return images, nil
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := utils.ImageDataURL(img.Source.FilePath)
		if err != nil {
			d.log.Warn(moduleName, "Skipping unreadable image", map[string]interface{}{
				"file_path": img.Source.FilePath,
				"error":     err.Error(),
			})
			continue
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return images, ErrNoReadableImages
	}

	answer, err := d.llm.Chat(ctx, []llm.Message{{
		Role:    "user",
		Content: fmt.Sprintf(constant.ImageQAPrompt, question),
		Images:  urls,
	}})
	if err != nil {
		return images, fmt.Errorf("image qa call failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return images, nil
	}

	out := make([]store.Candidate, len(images))
	for i, img := range images {
		out[i] = img
		out[i].Text = answer
	}
	return out, nil
}
