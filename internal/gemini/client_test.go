package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
)

type fakeGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func newTestClient(gen *fakeGenerator, env map[string]string) (*Client, *int) {
	c := NewClient(Options{})
	factoryCalls := 0
	c.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	c.newGen = func(context.Context, string) (contentGenerator, error) {
		factoryCalls++
		return gen, nil
	}
	return c, &factoryCalls
}

func imageResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}}},
	}}}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}}}
}

var sourceFile = media.File{Name: "cat.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestRemoveBackground_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse("image/png", []byte("png"))}
	for name, env := range map[string]map[string]string{
		"unset": {},
		"blank": {DefaultKeyEnv: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			c, factoryCalls := newTestClient(gen, env)
			_, err := c.RemoveBackground(context.Background(), sourceFile)
			if !errors.Is(err, ErrMissingCredential) {
				t.Fatalf("error = %v, want ErrMissingCredential", err)
			}
			var mce *MissingCredentialError
			if !errors.As(err, &mce) || mce.Env != DefaultKeyEnv {
				t.Fatalf("error = %#v, want MissingCredentialError for %s", err, DefaultKeyEnv)
			}
			if !strings.Contains(err.Error(), DefaultKeyEnv) {
				t.Fatalf("message %q should name %s", err.Error(), DefaultKeyEnv)
			}
			if *factoryCalls != 0 || gen.calls != 0 {
				t.Fatalf("network attempted: factory=%d generate=%d", *factoryCalls, gen.calls)
			}
		})
	}
}

func TestRemoveBackground_ReturnsEncodedImage(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse("image/png", []byte("png-bytes"))}
	c, _ := newTestClient(gen, map[string]string{DefaultKeyEnv: "secret"})

	got, err := c.RemoveBackground(context.Background(), sourceFile)
	if err != nil {
		t.Fatalf("RemoveBackground returned error: %v", err)
	}
	if got.MIMEType != "image/png" || got.Data != base64.StdEncoding.EncodeToString([]byte("png-bytes")) {
		t.Fatalf("RemoveBackground = %+v", got)
	}
	if gen.model != DefaultModel {
		t.Fatalf("model = %q, want %q", gen.model, DefaultModel)
	}

	if len(gen.contents) != 1 || len(gen.contents[0].Parts) != 2 {
		t.Fatalf("contents = %#v, want one content with two parts", gen.contents)
	}
	blob := gen.contents[0].Parts[0].InlineData
	if blob == nil || blob.MIMEType != "image/jpeg" || string(blob.Data) != string(sourceFile.Data) {
		t.Fatalf("inline data = %#v, want source bytes tagged image/jpeg", blob)
	}
	if gen.contents[0].Parts[1].Text != Instruction {
		t.Fatalf("instruction part = %q", gen.contents[0].Parts[1].Text)
	}
	if gen.config == nil || len(gen.config.ResponseModalities) != 2 {
		t.Fatalf("config = %#v, want IMAGE and TEXT modalities", gen.config)
	}
}

func TestRemoveBackground_TextOnlyIsRefusal(t *testing.T) {
	refusal := "I can't edit images of real people."
	gen := &fakeGenerator{resp: textResponse(refusal)}
	c, _ := newTestClient(gen, map[string]string{DefaultKeyEnv: "secret"})

	_, err := c.RemoveBackground(context.Background(), sourceFile)
	var re *RefusalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RefusalError", err)
	}
	if !strings.Contains(err.Error(), refusal) {
		t.Fatalf("message %q does not contain %q", err.Error(), refusal)
	}
}

func TestRemoveBackground_TransportErrorWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	gen := &fakeGenerator{err: boom}
	c, _ := newTestClient(gen, map[string]string{DefaultKeyEnv: "secret"})

	_, err := c.RemoveBackground(context.Background(), sourceFile)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}

func TestRemoveBackground_RejectsNonImage(t *testing.T) {
	gen := &fakeGenerator{}
	c, _ := newTestClient(gen, map[string]string{DefaultKeyEnv: "secret"})

	_, err := c.RemoveBackground(context.Background(), media.File{Name: "a.txt", MIMEType: "text/plain"})
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("error = %v, want ErrNotImage", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generate called %d times, want 0", gen.calls)
	}
}

func TestExtractImage(t *testing.T) {
	cases := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		wantErr error
		wantMIM string
	}{
		{"nil response", nil, ErrNoImage, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ErrNoImage, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ErrNoImage, ""},
		{"empty inline data", imageResponse("image/png", nil), ErrNoImage, ""},
		{"whitespace text", textResponse("  \n"), ErrNoImage, ""},
		{"image without type", imageResponse("", []byte("x")), nil, media.DefaultMIMEType},
		{"webp image", imageResponse("image/webp", []byte("x")), nil, "image/webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractImage(tc.resp)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractImage returned error: %v", err)
			}
			if got.MIMEType != tc.wantMIM {
				t.Fatalf("MIMEType = %q, want %q", got.MIMEType, tc.wantMIM)
			}
		})
	}
}

func TestExtractImage_ImageWinsOverText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "Here is your image"},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("img")}},
		}},
	}}}
	got, err := ExtractImage(resp)
	if err != nil {
		t.Fatalf("ExtractImage returned error: %v", err)
	}
	if got.Empty() {
		t.Fatalf("expected image data")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Options{Model: " models/gemini-custom "})
	if c.Model() != "gemini-custom" {
		t.Fatalf("Model = %q, want gemini-custom", c.Model())
	}
	if c.keyEnv != DefaultKeyEnv {
		t.Fatalf("keyEnv = %q, want %q", c.keyEnv, DefaultKeyEnv)
	}
	if NewClient(Options{KeyEnv: "API_KEY"}).keyEnv != "API_KEY" {
		t.Fatalf("KeyEnv override ignored")
	}
}

func TestClient_SendsInlineImageOverHTTP(t *testing.T) {
	t.Setenv("BGREMOVER_TEST_KEY", "test-key")

	png := []byte("\x89PNG fake")
	var gotBody, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"image/png","data":"`+
			base64.StdEncoding.EncodeToString(png)+`"}}]}}]}`)
	}))
	t.Cleanup(server.Close)

	c := NewClient(Options{KeyEnv: "BGREMOVER_TEST_KEY", BaseURL: server.URL + "/", HTTPClient: server.Client()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	got, err := c.RemoveBackground(ctx, sourceFile)
	if err != nil {
		t.Fatalf("RemoveBackground returned error: %v", err)
	}
	raw, err := got.Bytes()
	if err != nil || string(raw) != string(png) {
		t.Fatalf("image bytes = %q, %v; want %q", raw, err, png)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q, want test-key", gotKey)
	}
	if !strings.Contains(gotBody, "inlineData") || !strings.Contains(gotBody, "image/jpeg") {
		t.Fatalf("request body missing inline data: %s", gotBody)
	}
	if !strings.Contains(gotBody, "Remove the background") {
		t.Fatalf("request body missing instruction: %s", gotBody)
	}
}
