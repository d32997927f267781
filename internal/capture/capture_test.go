package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeRaw(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	headers := []Header{
		{Name: "Content-Type", Value: "text/html; charset=utf-8"},
		{Name: "X-Thing", Value: "one"},
		{Name: "X-Thing", Value: "two"},
	}
	body := []byte("<html><body>hello</body></html>")
	if err := Write(path, "http://example.org/file", "200 OK", headers, bytes.NewReader(body)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if resp.URL != "http://example.org/file" {
		t.Fatalf("url = %q", resp.URL)
	}
	if resp.StatusLine != "200 OK" {
		t.Fatalf("status = %q", resp.StatusLine)
	}
	if !reflect.DeepEqual(resp.Headers, headers) {
		t.Fatalf("headers = %v, want %v (order and duplicates preserved)", resp.Headers, headers)
	}
	if !bytes.Equal(resp.Body, body) {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestCharset(t *testing.T) {
	cases := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=utf-8", "utf-8"},
		{`text/html; charset="iso-8859-1"`, "iso-8859-1"},
		{"text/html", ""},
		{"", ""},
	}
	for _, c := range cases {
		resp := &Response{}
		if c.contentType != "" {
			resp.Headers = []Header{{Name: "content-type", Value: c.contentType}}
		}
		if got := resp.Charset(); got != c.want {
			t.Fatalf("Charset(%q) = %q, want %q", c.contentType, got, c.want)
		}
	}
}

func TestHeaderLookupIsCaseInsensitiveFirstMatch(t *testing.T) {
	resp := &Response{Headers: []Header{
		{Name: "x-a", Value: "first"},
		{Name: "X-A", Value: "second"},
	}}
	if got := resp.Header("X-a"); got != "first" {
		t.Fatalf("Header = %q, want first match", got)
	}
	if got := resp.Header("missing"); got != "" {
		t.Fatalf("Header(missing) = %q, want empty", got)
	}
}

func TestRead_NotACapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	if err := Write(path, "u", "s", nil, bytes.NewReader(nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Now a genuinely non-gzip file.
	if err := writeRaw(path, []byte("not gzip at all")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWrite_EmptyBodyAndHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := Write(path, "http://example.org", "204 No Content", nil, bytes.NewReader(nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	resp, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(resp.Headers) != 0 || len(resp.Body) != 0 {
		t.Fatalf("expected empty headers and body, got %v / %q", resp.Headers, resp.Body)
	}
}
