package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini implements ChatModel with the Gemini API (API key backend)
type Gemini struct {
	client          *genai.Client
	generativeModel string
	temperature     *float32
	baseURL         string
}

type GeminiOption func(*Gemini)

func WithGenerativeModel(name string) GeminiOption {
	return func(g *Gemini) {
		if name != "" {
			g.generativeModel = name
		}
	}
}

func WithTemperature(t float32) GeminiOption {
	return func(g *Gemini) {
		g.temperature = &t
	}
}

// WithGeminiBaseURL overrides the API endpoint, e.g. for a proxy
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = url
	}
}

func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(model.ErrMissingCredential, "gemini api key is empty")
	}

	g := &Gemini{
		generativeModel: DefaultGeminiModel,
	}
	for _, opt := range opts {
		opt(g)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

func (g *Gemini) Reply(ctx context.Context, instruction string, history model.History, text string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, ""),
		Temperature:       g.temperature,
	}

	chat, err := g.client.Chats.Create(ctx, g.generativeModel, config, toGeminiContents(history))
	if err != nil {
		return "", goerr.Wrap(err, "failed to create gemini chat", geminiErrorOptions(err)...)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", goerr.Wrap(err, "failed to send message to gemini",
			append(geminiErrorOptions(err), goerr.V("model", g.generativeModel))...)
	}

	answer := resp.Text()
	if answer == "" {
		return "", goerr.Wrap(model.ErrEmptyModelResponse, "gemini reply has no text", goerr.V("model", g.generativeModel))
	}

	return answer, nil
}

func toGeminiContents(history model.History) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == model.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text(), role))
	}
	return contents
}

// geminiErrorOptions tags errors from the Gemini API by their structured
// status so that classification does not rely on message text.
func geminiErrorOptions(err error) []goerr.Option {
	code, status, message, ok := geminiAPIError(err)
	if !ok {
		return nil
	}

	opts := []goerr.Option{goerr.V("status_code", code), goerr.V("status", status)}

	if tagOpt, ok := model.StatusTag(code); ok {
		return append(opts, tagOpt)
	}

	switch {
	case status == "PERMISSION_DENIED", status == "UNAUTHENTICATED":
		opts = append(opts, goerr.T(model.ErrTagUpstreamAuth))
	case status == "RESOURCE_EXHAUSTED":
		opts = append(opts, goerr.T(model.ErrTagUpstreamQuota))
	case code == http.StatusBadRequest && strings.Contains(message, "API key not valid"):
		opts = append(opts, goerr.T(model.ErrTagUpstreamAuth))
	}

	return opts
}

func geminiAPIError(err error) (code int, status, message string, ok bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message, true
	}

	return 0, "", "", false
}
