// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders markdown for a terminal of the given width.
// Returns the original content if rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// =============================================================================
// PAYLOAD HIGHLIGHTING
// =============================================================================

// payloadLanguage guesses the lexer for a decrypted payload.
func payloadLanguage(data string) string {
	trimmed := strings.TrimSpace(data)
	switch {
	case json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")):
		return "json"
	case strings.HasPrefix(trimmed, "-----BEGIN"):
		return ""
	}
	if l := lexers.Analyse(data); l != nil {
		return l.Config().Name
	}
	return ""
}

// highlight colors data for a 256-color terminal. Plain payloads and
// failures come back unchanged.
func highlight(data, language string) string {
	if language == "" {
		return data
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return data
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, data)
	if err != nil {
		return data
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return data
	}
	return buf.String()
}

// prettyJSON indents a JSON payload, or returns it unchanged.
func prettyJSON(data string) string {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return data
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return data
	}
	return string(b)
}
