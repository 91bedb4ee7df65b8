// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/parley/internal/model"
)

func sampleHistory() []model.Message {
	return []model.Message{
		model.NewUserMessage("hello"),
		model.NewAssistantMessage("hi there", []string{"doc1"}),
		model.NewUserMessage("and in French?"),
		model.NewAssistantMessage("Erreur serveur : réessayez plus tard", nil),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"txt", FormatText, false},
		{".md", FormatMarkdown, false},
		{"yml", FormatYAML, false},
		{"", FormatText, false},
		{"html", "", true},
	}

	for _, tc := range tests {
		got, err := ParseFormat(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if tc.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	msgs := sampleHistory()

	data, err := Render(msgs, FormatJSON, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(back) != len(msgs) {
		t.Fatalf("round trip length = %d, want %d", len(back), len(msgs))
	}
	for i := range msgs {
		if !back[i].Equal(msgs[i]) {
			t.Errorf("message %d = %+v, want %+v", i, back[i], msgs[i])
		}
	}
}

func TestJSONEmptyHistory(t *testing.T) {
	data, err := Render(nil, FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty export = %s, want []", data)
	}
	back, err := Parse(data)
	if err != nil || back == nil || len(back) != 0 {
		t.Errorf("Parse([]) = %v, %v", back, err)
	}
}

func TestParse_RejectsInvalidSchema(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"author":"user"}`,
		`[{"author":"system","text":"x"}]`,
		`[{"author":"user","text":"   "}]`,
	} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Parse(%s) succeeded, want error", data)
		}
	}
}

func TestTextExport_Layout(t *testing.T) {
	opts := DefaultOptions()
	opts.Labels = Labels{User: "Vous", Assistant: "Assistant", Sources: "Sources"}

	data, err := Render(sampleHistory()[:2], FormatText, opts)
	if err != nil {
		t.Fatal(err)
	}

	want := "Vous: hello\n\nAssistant: hi there\nSources: doc1\n"
	if string(data) != want {
		t.Errorf("text export = %q, want %q", data, want)
	}
}

func TestTextExport_Empty(t *testing.T) {
	data, _ := Render(nil, FormatText, nil)
	if len(data) != 0 {
		t.Errorf("empty text export = %q", data)
	}
}

func TestMarkdownExport(t *testing.T) {
	data, err := Render(sampleHistory(), FormatMarkdown, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{"# Chat history", "### You", "### Assistant", "<sub>Sources: doc1</sub>", "---"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "---\n") != len(sampleHistory())-1 {
		t.Errorf("expected %d separators", len(sampleHistory())-1)
	}
}

func TestYAMLExport(t *testing.T) {
	data, err := Render(sampleHistory(), FormatYAML, nil)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Count    int `yaml:"count"`
		Messages []struct {
			Author  string   `yaml:"author"`
			Text    string   `yaml:"text"`
			Sources []string `yaml:"sources"`
		} `yaml:"messages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if doc.Count != 4 || len(doc.Messages) != 4 {
		t.Fatalf("count = %d, messages = %d", doc.Count, len(doc.Messages))
	}
	if doc.Messages[1].Author != "assistant" || doc.Messages[1].Sources[0] != "doc1" {
		t.Errorf("message 1 = %+v", doc.Messages[1])
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.FileName = "historique_chat.txt"

	path, err := ExportToFile(sampleHistory(), NewTextExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if path != filepath.Join(dir, "historique_chat.txt") {
		t.Errorf("path = %q", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), "You: hello\n") {
		t.Errorf("content = %q", content)
	}
}

func TestExportToFile_GeneratedName(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(sampleHistory(), NewJSONExporter(), opts)
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "conversation_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("generated name = %q", base)
	}
}

func TestFilenameSanitization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"chat_history.txt", "chat_history.txt"},
		{"../../etc/passwd", "..-..-etc-passwd"},
		{"a:b*c?.md", "a-b-c-.md"},
		{"my chat.txt", "my_chat.txt"},
		{"", "conversation"},
		{"..", "conversation"},
	}

	for _, tc := range tests {
		if got := sanitizeFilename(tc.input); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("# *a* [b]_"); got != `\# \*a\* \[b\]\_` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}
