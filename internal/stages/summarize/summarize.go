// Package summarize implements the SUMMARIZE-stage processor: it compresses
// a communication's scraped full text into a shorter summary via an
// OpenAI-compatible chat-completions call, grounded on the teacher's
// internal/infrastructure/llm/chatgpt.go client shape, adapted to use
// github.com/sashabaranov/go-openai instead of a hand-rolled HTTP client.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"discoursekg/internal/domain"
	"discoursekg/internal/processor"
)

const systemPrompt = "You summarize political speeches, interviews, and debates factually and concisely, preserving named entities, numbers, and direct quotes."

// shortTextWordThreshold is the original's threshold below which a
// communication is passed through unsummarized (original_source's
// summarize/config.py skips the LLM call for very short transcripts).
const shortTextWordThreshold = 150

// Summarizer implements processor.Processor for the SUMMARIZE stage.
type Summarizer struct {
	client *openai.Client
	model  string
}

// New builds a Summarizer against an OpenAI-compatible API.
func New(apiKey, model string) *Summarizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Summarizer{client: openai.NewClient(apiKey), model: model}
}

func (s *Summarizer) Stage() domain.Stage            { return domain.StageSummarize }
func (s *Summarizer) RequiredStages() []domain.Stage { return []domain.Stage{domain.StageScrape} }

// Process summarizes the prior SCRAPE artifact's full_text.
func (s *Summarizer) Process(ctx context.Context, state domain.PipelineState, prior map[domain.Stage]json.RawMessage) (processor.StageResult, error) {
	var scrape domain.ScrapeArtifact
	if err := json.Unmarshal(prior[domain.StageScrape], &scrape); err != nil {
		return processor.StageResult{}, fmt.Errorf("summarize: decode scrape artifact: %w", err)
	}

	wordCount := len(strings.Fields(scrape.FullText))
	if wordCount <= shortTextWordThreshold {
		return processor.StageResult{
			Artifact: domain.SummarizeArtifact{Summary: scrape.FullText, WasSummarized: false},
		}, nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: scrape.FullText},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("summarize: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return processor.StageResult{}, fmt.Errorf("summarize: empty completion response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	ratio := 0.0
	if len(scrape.FullText) > 0 {
		ratio = float64(len(summary)) / float64(len(scrape.FullText))
	}

	return processor.StageResult{
		Artifact: domain.SummarizeArtifact{
			Summary:          summary,
			WasSummarized:    true,
			CompressionRatio: ratio,
		},
	}, nil
}
