package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
)

// ErrIngest wraps any failure to read a user-supplied file.
var ErrIngest = errors.New("ingest failed")

// Read consumes r fully and builds a TransferFile. A data-URL transport
// prefix ("data:<mime>;base64,") is stripped and decoded so Data always
// holds raw bytes. When declaredMIME is empty or generic the type is
// sniffed from content.
func Read(r io.Reader, name, declaredMIME string) (*domain.TransferFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrIngest, name, err)
	}

	data, embeddedMIME, err := stripDataURL(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrIngest, name, err)
	}

	mime := declaredMIME
	if embeddedMIME != "" {
		mime = embeddedMIME
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = sniffMIME(name, data)
	}

	return &domain.TransferFile{Name: name, MimeType: mime, Data: data}, nil
}

// stripDataURL decodes a "data:<mime>;base64,<payload>" envelope if present.
func stripDataURL(data []byte) ([]byte, string, error) {
	if !bytes.HasPrefix(data, []byte("data:")) {
		return data, "", nil
	}
	comma := bytes.IndexByte(data, ',')
	if comma < 0 {
		return data, "", nil
	}
	header := string(data[len("data:"):comma])
	if !strings.HasSuffix(header, ";base64") {
		return data, "", nil
	}
	mime := strings.TrimSuffix(header, ";base64")
	decoded, err := base64.StdEncoding.DecodeString(string(data[comma+1:]))
	if err != nil {
		return nil, "", err
	}
	return decoded, mime, nil
}

func sniffMIME(name string, data []byte) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(strings.ToLower(name), ".md"):
		return "text/markdown"
	}
	return http.DetectContentType(data)
}

// FromBytes is Read over an in-memory payload.
func FromBytes(data []byte, name, declaredMIME string) (*domain.TransferFile, error) {
	return Read(bytes.NewReader(data), name, declaredMIME)
}

// FetchDocument downloads url and builds a TransferFile from the body,
// honoring the ingest size cap. Used for non-HTML resources.
func FetchDocument(ctx context.Context, client *http.Client, url, name string) (*domain.TransferFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: request %q: %v", ErrIngest, url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %q: %v", ErrIngest, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %q: status %d", ErrIngest, url, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, config.MaxIngestBodySize)
	return Read(body, name, resp.Header.Get("Content-Type"))
}
