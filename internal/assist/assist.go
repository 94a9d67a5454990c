// Package assist answers natural-language questions about a rendered
// timetable using an Azure OpenAI deployment.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// Completer produces a chat completion for a prompt. The production
// implementation calls Azure OpenAI; tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient is a Completer backed by an Azure OpenAI deployment.
type OpenAIClient struct {
	client     *azopenai.Client
	deployment string
}

// NewOpenAIClient creates a client for the given endpoint and deployment.
func NewOpenAIClient(endpoint, apiKey, deployment string) (*OpenAIClient, error) {
	cred := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &OpenAIClient{client: client, deployment: deployment}, nil
}

// Complete sends the prompt and returns the completion text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(c.deployment),
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(prompt),
			},
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("no completion received")
	}
	return *resp.Choices[0].Message.Content, nil
}

// Assistant answers questions grounded in the current timetable.
type Assistant struct {
	completer Completer
	logger    *slog.Logger
}

// New creates an Assistant on top of a Completer.
func New(completer Completer, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assistant{completer: completer, logger: logger}
}

// Ask answers a question about the timetable. The answer is returned as
// markdown text.
func (a *Assistant) Ask(ctx context.Context, question, tableHTML string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}

	a.logger.Debug("asking assistant", slog.Int("question_len", len(question)))

	answer, err := a.completer.Complete(ctx, buildPrompt(question, tableHTML))
	if err != nil {
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	return answer, nil
}

// buildPrompt frames the timetable HTML as context for the question.
func buildPrompt(question, tableHTML string) string {
	var b strings.Builder
	b.WriteString("You are a scheduling assistant. Below is the HTML of the current weekly course timetable.\n\n")
	b.WriteString(tableHTML)
	b.WriteString("\n\nUsing only the timetable above, answer the following question. Answer in the language the question is asked in.\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
