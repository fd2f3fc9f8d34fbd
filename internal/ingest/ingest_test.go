package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromBytes(t *testing.T) {
	t.Run("raw bytes keep declared mime", func(t *testing.T) {
		f, err := FromBytes([]byte("hello notes"), "notes.txt", "text/plain")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.MimeType != "text/plain" {
			t.Fatalf("mime = %q", f.MimeType)
		}
		if string(f.Data) != "hello notes" {
			t.Fatalf("data = %q", f.Data)
		}
	})

	t.Run("data url is decoded", func(t *testing.T) {
		payload := []byte{0x89, 0x50, 0x4e, 0x47}
		encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
		f, err := FromBytes([]byte(encoded), "drawing.png", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.MimeType != "image/png" {
			t.Fatalf("mime = %q, want embedded image/png", f.MimeType)
		}
		if string(f.Data) != string(payload) {
			t.Fatalf("data = %x, want raw decoded bytes", f.Data)
		}
	})

	t.Run("corrupt data url payload fails", func(t *testing.T) {
		_, err := FromBytes([]byte("data:image/png;base64,!!!not-base64!!!"), "x.png", "")
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest, got %v", err)
		}
	})

	t.Run("generic mime is sniffed from extension", func(t *testing.T) {
		f, err := FromBytes([]byte("%PDF-1.7 ..."), "script.pdf", "application/octet-stream")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.MimeType != "application/pdf" {
			t.Fatalf("mime = %q", f.MimeType)
		}
	})

	t.Run("empty mime is sniffed from content", func(t *testing.T) {
		f, err := FromBytes([]byte("<html><body>x</body></html>"), "page", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.MimeType, "text/html") {
			t.Fatalf("mime = %q, want html", f.MimeType)
		}
	})
}

func TestBase64RoundTrip(t *testing.T) {
	f, err := FromBytes([]byte{0, 1, 2, 254, 255}, "blob.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(f.Base64())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != string(f.Data) {
		t.Fatal("Base64 must round-trip the payload")
	}
}

func TestFetchDocument(t *testing.T) {
	t.Run("downloads with the served content type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-1.7 lecture notes")
		}))
		defer server.Close()

		f, err := FetchDocument(context.Background(), server.Client(), server.URL+"/notes.pdf", "notes.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name != "notes.pdf" || f.MimeType != "application/pdf" {
			t.Fatalf("file = %+v", f)
		}
		if string(f.Data) != "%PDF-1.7 lecture notes" {
			t.Fatalf("data = %q", f.Data)
		}
	})

	t.Run("http error is reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := FetchDocument(context.Background(), server.Client(), server.URL, "x.pdf")
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest, got %v", err)
		}
	})
}

func TestFromURL(t *testing.T) {
	t.Run("extracts readable text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head>
				<title>Heat Transfer Basics</title>
				<script>alert("tracked")</script>
				<style>p { color: red }</style>
			</head><body>
				<h1>Conduction</h1>
				<p>Fourier's law relates flux to the temperature gradient.</p>
				<li>q = -kA dT/dx</li>
			</body></html>`)
		}))
		defer server.Close()

		f, err := FromURL(context.Background(), server.Client(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name != "Heat Transfer Basics" {
			t.Fatalf("name = %q", f.Name)
		}
		if f.MimeType != "text/plain" {
			t.Fatalf("mime = %q", f.MimeType)
		}
		text := string(f.Data)
		for _, want := range []string{"Conduction", "Fourier's law", "q = -kA dT/dx"} {
			if !strings.Contains(text, want) {
				t.Fatalf("text missing %q:\n%s", want, text)
			}
		}
		for _, banned := range []string{"alert", "color: red"} {
			if strings.Contains(text, banned) {
				t.Fatalf("script/style content leaked: %q", banned)
			}
		}
	})

	t.Run("title falls back to url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>untitled notes</p></body></html>`)
		}))
		defer server.Close()

		f, err := FromURL(context.Background(), server.Client(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name != server.URL {
			t.Fatalf("name = %q, want the url", f.Name)
		}
	})

	t.Run("non-html resource is ingested raw", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-1.7 content")
		}))
		defer server.Close()

		f, err := FromURL(context.Background(), server.Client(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.MimeType != "application/pdf" {
			t.Fatalf("mime = %q", f.MimeType)
		}
	})

	t.Run("http error is reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := FromURL(context.Background(), server.Client(), server.URL)
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest, got %v", err)
		}
	})

	t.Run("empty page is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><script>only.code()</script></body></html>`)
		}))
		defer server.Close()

		_, err := FromURL(context.Background(), server.Client(), server.URL)
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest for page without text, got %v", err)
		}
	})
}
