// Package categorize implements the CATEGORIZE-stage processor: it asks an
// OpenAI-compatible chat model to extract entity/topic/subject mentions from
// a communication's summary, grounded on the same teacher client shape as
// internal/stages/summarize, with the model constrained to JSON output and
// every mention re-validated against the closed-set rules in
// internal/domain/categorize.go before being accepted.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"discoursekg/internal/domain"
	"discoursekg/internal/processor"
)

const systemPrompt = `You extract structured mentions of organizations, people, locations, programs, products, and events from political communications.
Respond with a JSON object of the form {"entities": [{"entity_name": "...", "entity_type": "organization|location|person|program|product|event|other", "mentions": [{"topic": "...", "context": "...", "subjects": [{"subject_name": "...", "sentiment": "positive|negative|neutral|unclear", "quotes": ["..."]}]}]}]}.
subject_name must be 1-3 words. context must be a direct excerpt of 10-500 characters. Provide 1-6 quotes per subject.`

// Categorizer implements processor.Processor for the CATEGORIZE stage.
type Categorizer struct {
	client *openai.Client
	model  string
}

// New builds a Categorizer against an OpenAI-compatible API.
func New(apiKey, model string) *Categorizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Categorizer{client: openai.NewClient(apiKey), model: model}
}

func (c *Categorizer) Stage() domain.Stage            { return domain.StageCategorize }
func (c *Categorizer) RequiredStages() []domain.Stage { return []domain.Stage{domain.StageSummarize} }

type categorizeResponse struct {
	Entities []domain.EntityMention `json:"entities"`
}

// Process extracts and validates entity mentions from the prior SUMMARIZE artifact.
func (c *Categorizer) Process(ctx context.Context, state domain.PipelineState, prior map[domain.Stage]json.RawMessage) (processor.StageResult, error) {
	var summarized domain.SummarizeArtifact
	if err := json.Unmarshal(prior[domain.StageSummarize], &summarized); err != nil {
		return processor.StageResult{}, fmt.Errorf("categorize: decode summarize artifact: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summarized.Summary},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("categorize: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return processor.StageResult{}, fmt.Errorf("categorize: empty completion response")
	}

	var parsed categorizeResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return processor.StageResult{}, fmt.Errorf("%w: categorize response not valid JSON: %v", domain.ErrValidationFailed, err)
	}

	artifact := domain.CategorizeArtifact{Entities: parsed.Entities}
	if err := artifact.Validate(); err != nil {
		return processor.StageResult{}, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	return processor.StageResult{
		Artifact: artifact,
	}, nil
}
