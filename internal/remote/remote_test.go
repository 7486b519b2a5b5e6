package remote

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{Op: "transcription", StatusCode: 401, Body: []byte(`{"error":"bad key"}`)}
	want := `transcription failed: 401 {"error":"bad key"}`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	err := error(&TransportError{Op: "enrichment", Err: io.ErrUnexpectedEOF})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("errors.Is should see the cause")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "enrichment" {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestSuccess(t *testing.T) {
	for code, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 500: false} {
		if got := Success(code); got != want {
			t.Errorf("Success(%d) = %v", code, got)
		}
	}
}

func TestFormatBody(t *testing.T) {
	if got := FormatBody(nil); got != "<empty>" {
		t.Errorf("FormatBody(nil) = %q", got)
	}
	long := strings.Repeat("a", 1500)
	if got := FormatBody([]byte(long)); !strings.Contains(got, "truncated, total 1500 bytes") {
		t.Errorf("long body not truncated: %q", got[len(got)-40:])
	}
	if got := FormatBody([]byte{0xff, 0xfe}); got != "<binary 2 bytes, hex: fffe>" {
		t.Errorf("binary body = %q", got)
	}
}

func TestNewHTTPClientTimeout(t *testing.T) {
	c := NewHTTPClient(ClientOptions{Timeout: 3 * time.Second, VerifySSL: true})
	if c.Timeout != 3*time.Second {
		t.Fatalf("Timeout = %v", c.Timeout)
	}
	if NewHTTPClient(ClientOptions{}).Timeout != 0 {
		t.Fatal("zero options should leave timeout unset")
	}
}
