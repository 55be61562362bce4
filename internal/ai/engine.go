// Package ai answers customer messages by calling an external
// generative-language API. Persona selection happens here; the model
// itself is entirely remote.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopmind/shopmind/internal/models"
)

// Personas select the system prompt sent with every request.
const (
	PersonaSales   = "sales"
	PersonaSupport = "support"
)

var personaPrompts = map[string]string{
	PersonaSales: "You are a friendly sales assistant for an online store. " +
		"Answer the customer, recommend relevant products and move the conversation toward a purchase.",
	PersonaSupport: "You are a patient support agent for an online store. " +
		"Resolve the customer's issue concisely and escalate when you cannot.",
}

// ParsePersona validates a persona name against the known set.
func ParsePersona(s string) (string, error) {
	if _, ok := personaPrompts[s]; !ok {
		return "", fmt.Errorf("unknown persona %q", s)
	}
	return s, nil
}

// Client calls the generative model endpoint. One POST per reply,
// no streaming.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/models/%s:generateText", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("ai: upstream %d: %s", res.StatusCode, b)
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ai: decode: %w", err)
	}
	return out.Text, nil
}

// Engine builds the prompt from the conversation and asks the model.
type Engine struct {
	Client *Client
}

// BuildPrompt assembles persona instructions plus recent history. Unknown
// personas fall back to sales.
func BuildPrompt(persona string, history []models.Message, incoming string) string {
	system, ok := personaPrompts[persona]
	if !ok {
		system = personaPrompts[PersonaSales]
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	for _, m := range history {
		b.WriteString(m.Sender)
		b.WriteString(": ")
		b.WriteString(m.Body)
		b.WriteString("\n")
	}
	b.WriteString("customer: ")
	b.WriteString(incoming)
	b.WriteString("\nassistant:")
	return b.String()
}

// Reply answers one incoming customer message in the conversation's persona.
func (e *Engine) Reply(ctx context.Context, conv *models.Conversation, history []models.Message, incoming string) (string, error) {
	prompt := BuildPrompt(conv.Persona, history, incoming)
	return e.Client.Generate(ctx, prompt)
}
