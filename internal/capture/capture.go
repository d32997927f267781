// Package capture reads and writes the HTTP capture snapshot container
// (format v1). A capture file is one gzip stream whose uncompressed payload
// is, in order: a parameters JSON object on its own line, the response
// status line, CRLF-terminated header lines, a blank line, then the raw
// body bytes to end of stream.
package capture

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Header is one captured response header. Order and duplicates are
// preserved exactly as received.
type Header struct {
	Name  string
	Value string
}

// Response is the decoded content of one capture snapshot. It lives only
// for the duration of a single render call.
type Response struct {
	URL        string
	StatusLine string
	Headers    []Header
	Body       []byte
}

// Header returns the first header value matching name, case-insensitively,
// or the empty string.
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Charset extracts the charset parameter from the Content-Type header,
// used as the decoder hint for markup parsing. A missing Content-Type or
// one without a charset parameter yields the empty string.
func (r *Response) Charset() string {
	ct := r.Header("Content-Type")
	if ct == "" {
		return ""
	}
	_, after, found := strings.Cut(ct, "charset=")
	if !found {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after), `"`)
}

type parameters struct {
	URL string `json:"url"`
}

// Write persists one captured response at path. body is consumed to EOF.
func Write(path, url, statusLine string, headers []Header, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	params, err := json.Marshal(parameters{URL: url})
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	if _, err := zw.Write(append(params, '\n')); err != nil {
		return fmt.Errorf("write parameters: %w", err)
	}
	if _, err := io.WriteString(zw, statusLine+"\r\n"); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	for _, h := range headers {
		if _, err := io.WriteString(zw, h.Name+": "+h.Value+"\r\n"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if _, err := io.WriteString(zw, "\r\n"); err != nil {
		return fmt.Errorf("write header terminator: %w", err)
	}
	if _, err := io.Copy(zw, body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush capture: %w", err)
	}
	return f.Close()
}

// Read decodes the capture snapshot at path.
func Read(path string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	defer zr.Close()

	br := bufio.NewReader(zr)
	paramLine, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}
	var params parameters
	if err := json.Unmarshal(bytes.TrimRight(paramLine, "\n"), &params); err != nil {
		return nil, fmt.Errorf("parse parameters: %w", err)
	}

	statusLine, err := readCRLFLine(br)
	if err != nil {
		return nil, fmt.Errorf("read status line: %w", err)
	}

	var headers []Header
	for {
		line, err := readCRLFLine(br)
		if err != nil {
			return nil, fmt.Errorf("read headers: %w", err)
		}
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		headers = append(headers, Header{Name: name, Value: strings.TrimLeft(value, " ")})
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		URL:        params.URL,
		StatusLine: statusLine,
		Headers:    headers,
		Body:       body,
	}, nil
}

func readCRLFLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
