package web

import "testing"

func TestParseContentTypeSplitsCharset(t *testing.T) {
	ct, cs := parseContentType("text/html; charset=ISO-8859-1")
	if ct != "text/html" || cs != "iso-8859-1" {
		t.Fatalf("got ct=%q cs=%q", ct, cs)
	}
}

func TestIsHTMLRecognizesXHTML(t *testing.T) {
	if !isHTML("application/xhtml+xml") {
		t.Fatalf("expected application/xhtml+xml to be treated as HTML")
	}
	if isHTML("application/json") {
		t.Fatalf("expected application/json to not be treated as HTML")
	}
}

func TestBaseOriginStripsPathAndQuery(t *testing.T) {
	got := baseOrigin("https://example.edu/path/to/page?x=1")
	if got != "https://example.edu" {
		t.Fatalf("expected https://example.edu, got %q", got)
	}
}

func TestToUTF8PassesThroughAlreadyUTF8(t *testing.T) {
	b, err := toUTF8([]byte("hello"), "utf-8")
	if err != nil {
		t.Fatalf("toUTF8: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("expected passthrough, got %q", b)
	}
}
