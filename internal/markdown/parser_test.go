package markdown

import (
	"strings"
	"testing"

	"github.com/thelyad/postpress/pkg/interfaces"
)

func TestGoldmarkParserDefaults(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	html, err := parser.Parse([]byte("~~gone~~ and https://example.com\n\n- [x] done"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out := string(html)
	if !strings.Contains(out, "<del>gone</del>") {
		t.Fatalf("expected strikethrough, got %s", out)
	}
	if !strings.Contains(out, "<a href=\"https://example.com\"") {
		t.Fatalf("expected autolink, got %s", out)
	}
	if !strings.Contains(out, "checkbox") {
		t.Fatalf("expected task list checkbox, got %s", out)
	}
}

func TestGoldmarkParserRawHTML(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	html, err := parser.Parse([]byte("<div class=\"x\">inline</div>"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(string(html), "<div class=\"x\">") {
		t.Fatalf("expected raw HTML preserved, got %s", html)
	}

	safe, err := parser.ParseWithOptions([]byte("<div>inline</div>"), interfaces.ParseOptions{SafeMode: true})
	if err != nil {
		t.Fatalf("ParseWithOptions: %v", err)
	}
	if strings.Contains(string(safe), "<div>") {
		t.Fatalf("expected raw HTML suppressed in safe mode, got %s", safe)
	}
}

func TestGoldmarkParserExtensionSelection(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{Extensions: []string{"table"}})

	html, err := parser.Parse([]byte("| a |\n|---|\n| 1 |\n\n~~keep~~"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out := string(html)
	if !strings.Contains(out, "<table>") {
		t.Fatalf("expected table extension, got %s", out)
	}
	if strings.Contains(out, "<del>") {
		t.Fatalf("strikethrough should be disabled, got %s", out)
	}
}
