// Package remote holds what the transcription and enrichment clients share:
// the fixed API location, HTTP client construction and the failure taxonomy.
package remote

import (
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/net/http2"
)

// BaseURL is the OpenAI-compatible API both clients talk to.
const BaseURL = "https://api.groq.com/openai/v1"

// UserAgent is sent with every request.
const UserAgent = "echoflow-go-client/1.0"

// ClientOptions tune the shared transport.
type ClientOptions struct {
	Timeout     time.Duration // 0 leaves the transport default
	EnableHTTP2 bool
	VerifySSL   bool
}

// NewHTTPClient builds the client used for both endpoints.
func NewHTTPClient(opts ClientOptions) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !opts.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if opts.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{Transport: tr, Timeout: opts.Timeout}
}

// RequestError is returned when an endpoint answers with a non-2xx status.
type RequestError struct {
	Op         string // "transcription", "enrichment"
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, FormatBody(e.Body))
}

// TransportError is returned when no HTTP response was received at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Success reports whether code is a 2xx status.
func Success(code int) bool {
	return code >= 200 && code < 300
}

// FormatBody renders a response body for logs and error messages, truncating
// long text and hex-dumping binary payloads.
func FormatBody(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		if len(b) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", b[:maxText], len(b))
		}
		return string(b)
	}
	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
