// Package asr uploads recorded clips to the speech-to-text endpoint.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"echoflow/internal/jsonpath"
	"echoflow/internal/record"
	"echoflow/internal/remote"

	"github.com/charmbracelet/log"
)

// Model is the transcription model requested on every upload.
const Model = "whisper-large-v3"

const op = "transcription"

// Client performs ASR uploads.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.endpoint = base + "/audio/transcriptions" }
}

// WithLogger sets the logger used for upload diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a transcription client. A nil httpClient uses
// http.DefaultClient.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		endpoint:   remote.BaseURL + "/audio/transcriptions",
		logger:     log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Transcribe uploads the clip and returns the recognised text. A response
// without a text field yields "".
func (c *Client) Transcribe(ctx context.Context, clip record.Clip, credential string) (string, error) {
	text, _, err := c.TranscribeRaw(ctx, clip, credential)
	return text, err
}

// TranscribeRaw is Transcribe that also returns the raw response body, which
// the cache keeps alongside the audio.
func (c *Client) TranscribeRaw(ctx context.Context, clip record.Clip, credential string) (string, []byte, error) {
	body, contentType, err := buildForm(clip)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("User-Agent", remote.UserAgent)

	c.logger.Debug("uploading", "file", clip.Filename, "bytes", len(clip.Data), "endpoint", c.endpoint)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, &remote.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &remote.TransportError{Op: op, Err: err}
	}
	c.logger.Debug("upload finished", "status", resp.StatusCode, "duration", time.Since(start))

	if !remote.Success(resp.StatusCode) {
		return "", respBody, &remote.RequestError{Op: op, StatusCode: resp.StatusCode, Body: respBody}
	}
	text, err := jsonpath.String(respBody, "text")
	if err != nil {
		return "", respBody, fmt.Errorf("decode %s response: %w", op, err)
	}
	return text, respBody, nil
}

func buildForm(clip record.Clip) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := clip.Filename
	if name == "" {
		name = "audio.wav"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	ct := clip.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, "", fmt.Errorf("copy clip: %w", err)
	}
	if err := writer.WriteField("model", Model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
