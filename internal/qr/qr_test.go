package qr

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDataURLIsPNG(t *testing.T) {
	url, err := NewRenderer().DataURL("https://quiz.example.com/quiz/quiz-1-1700000000000")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(url, dataURLPrefix) {
		t.Fatalf("expected png data url, got %.40s", url)
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPrefix))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("payload is not a png")
	}
}

func TestDataURLRejectsEmptyContent(t *testing.T) {
	if _, err := NewRenderer().DataURL(""); err == nil {
		t.Fatalf("expected error for empty content")
	}
}
