package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
)

const (
	DefaultModel  = "gemini-2.5-flash-image"
	DefaultKeyEnv = "GEMINI_API_KEY"

	// Instruction is sent alongside every image.
	Instruction = "Remove the background from this image. Keep the main subject exactly as it is " +
		"and return only the subject on a fully transparent background as a PNG image."
)

// Remover strips the background from an image.
type Remover interface {
	RemoveBackground(ctx context.Context, file media.File) (media.Encoded, error)
}

// Ensure Client implements Remover at compile time.
var _ Remover = (*Client)(nil)

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

// Options configure a Client.
type Options struct {
	Model      string
	KeyEnv     string // environment variable holding the API key
	BaseURL    string // optional endpoint override
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client talks to the Gemini generateContent API.
type Client struct {
	model     string
	keyEnv    string
	lookupEnv func(string) (string, bool)
	newGen    generatorFactory
	logger    *zap.SugaredLogger
}

// NewClient builds a Client. The credential is not read here; it is looked up
// on every call so a key exported after startup is honoured.
func NewClient(opts Options) *Client {
	model := strings.TrimPrefix(strings.TrimSpace(opts.Model), "models/")
	if model == "" {
		model = DefaultModel
	}
	keyEnv := strings.TrimSpace(opts.KeyEnv)
	if keyEnv == "" {
		keyEnv = DefaultKeyEnv
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	httpClient := opts.HTTPClient

	return &Client{
		model:     model,
		keyEnv:    keyEnv,
		lookupEnv: os.LookupEnv,
		logger:    logger,
		newGen: func(ctx context.Context, apiKey string) (contentGenerator, error) {
			cfg := &genai.ClientConfig{
				APIKey:     apiKey,
				Backend:    genai.BackendGeminiAPI,
				HTTPClient: httpClient,
			}
			if baseURL != "" {
				cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
			}
			client, err := genai.NewClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return client.Models, nil
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// RemoveBackground sends one request and returns the image the model produced.
func (c *Client) RemoveBackground(ctx context.Context, file media.File) (media.Encoded, error) {
	if c == nil {
		return media.Encoded{}, fmt.Errorf("client is nil")
	}
	apiKey, err := c.credential()
	if err != nil {
		return media.Encoded{}, err
	}
	if !media.IsImage(file.MIMEType) {
		return media.Encoded{}, fmt.Errorf("%w: %s", ErrNotImage, file.MIMEType)
	}

	gen, err := c.newGen(ctx, apiKey)
	if err != nil {
		return media.Encoded{}, fmt.Errorf("init gemini client: %w", err)
	}

	started := time.Now()
	resp, err := gen.GenerateContent(ctx, c.model, buildContents(file), generateConfig())
	if err != nil {
		c.logger.Warnw("gemini request failed", "model", c.model, "file", file.Name, "took", time.Since(started).String(), "error", err)
		return media.Encoded{}, fmt.Errorf("gemini request: %w", err)
	}
	c.logger.Infow("gemini request completed", "model", c.model, "file", file.Name, "bytes", file.Size(), "took", time.Since(started).String())

	return ExtractImage(resp)
}

func (c *Client) credential() (string, error) {
	v, ok := c.lookupEnv(c.keyEnv)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &MissingCredentialError{Env: c.keyEnv}
	}
	return strings.TrimSpace(v), nil
}

func buildContents(file media.File) []*genai.Content {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: file.MIMEType, Data: file.Data}},
		genai.NewPartFromText(Instruction),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
}

// ExtractImage scans every candidate for an inline image. Failing that, the
// first text part becomes a RefusalError; an empty response yields ErrNoImage.
func ExtractImage(resp *genai.GenerateContentResponse) (media.Encoded, error) {
	if resp == nil {
		return media.Encoded{}, ErrNoImage
	}
	var text string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return media.EncodeBytes(part.InlineData.MIMEType, part.InlineData.Data), nil
			}
			if text == "" && strings.TrimSpace(part.Text) != "" {
				text = part.Text
			}
		}
	}
	if text != "" {
		return media.Encoded{}, &RefusalError{Text: text}
	}
	return media.Encoded{}, ErrNoImage
}
