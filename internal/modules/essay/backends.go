package essay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"

	"github.com/admitlens/core/internal/config"
	"github.com/admitlens/core/internal/models"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultOllamaModel    = "llama3.1"
)

// modelBackend drives a chat model through the unified language-model layer
// and parses its JSON reply into a Feedback.
type modelBackend struct {
	name  string
	model jetapi.LanguageModel
}

func (b *modelBackend) Name() string { return b.name }

func (b *modelBackend) Generate(ctx context.Context, essayText string) (*models.Feedback, error) {
	resp, err := jetai.GenerateText(
		ctx,
		[]jetapi.Message{
			&jetapi.SystemMessage{Content: feedbackSystemPrompt},
			&jetapi.UserMessage{Content: jetapi.ContentFromText(buildFeedbackPrompt(essayText))},
		},
		jetai.WithModel(b.model),
		jetai.WithMaxOutputTokens(maxOutputTokens),
	)
	if err != nil {
		return nil, err
	}
	text, err := extractResponseText(resp)
	if err != nil {
		return nil, err
	}

	var fb models.Feedback
	if err := unmarshalModelJSON(text, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

func newOpenAIBackend(cfg config.LLMConfig) (Backend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	modelID := strings.TrimSpace(cfg.Model)
	if modelID == "" {
		modelID = defaultOpenAIModel
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(cfg.Endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}

	client := openaiclient.NewClient(opts...)
	model := jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client))
	return &modelBackend{name: "openai", model: model}, nil
}

func newAnthropicBackend(cfg config.LLMConfig) (Backend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is empty")
	}
	modelID := strings.TrimSpace(cfg.Model)
	if modelID == "" {
		modelID = defaultAnthropicModel
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}

	client := anthropicclient.NewClient(opts...)
	model := jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client))
	return &modelBackend{name: "anthropic", model: model}, nil
}

// ollamaBackend talks to a local Ollama server over its plain chat API.
type ollamaBackend struct {
	endpoint string
	model    string
	client   *http.Client
}

func newOllamaBackend(cfg config.LLMConfig) (Backend, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("ollama endpoint is empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOllamaModel
	}
	// No client-level timeout; the adapter's context deadline governs the call.
	return &ollamaBackend{endpoint: endpoint, model: model, client: &http.Client{}}, nil
}

func (b *ollamaBackend) Name() string { return "ollama" }

func (b *ollamaBackend) Generate(ctx context.Context, essayText string) (*models.Feedback, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "system", "content": feedbackSystemPrompt},
			{"role": "user", "content": buildFeedbackPrompt(essayText)},
		},
		"stream": false,
		"format": "json",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("ollama error: %s", strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", result.Error)
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return nil, errors.New("empty response from model")
	}

	var fb models.Feedback
	if err := unmarshalModelJSON(result.Message.Content, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

func extractResponseText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from model")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// unmarshalModelJSON tolerates code fences and stray prose around the JSON
// object; models are not trusted to honor the output format exactly.
func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := trimJSONFences(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return errors.New("invalid JSON response from model")
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
