package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/colorprofile"
	"github.com/mark3labs/stepform/internal/stepform"
	"gopkg.in/yaml.v3"
)

// encodeValues renders a payload as yaml or json.
func encodeValues(values stepform.Values, format string) (string, error) {
	switch format {
	case "", "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(values)); err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		_ = enc.Close()
		return buf.String(), nil
	case "json":
		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(data) + "\n", nil
	}
	return "", fmt.Errorf("unknown output format %q (want yaml or json)", format)
}

// writeValues prints a payload, highlighted when w is a color terminal.
func writeValues(w io.Writer, values stepform.Values, format string) error {
	out, err := encodeValues(values, format)
	if err != nil {
		return err
	}
	if format == "" {
		format = "yaml"
	}
	_, err = fmt.Fprint(w, highlight(w, out, format))
	return err
}

// formatterFor picks the chroma formatter matching the terminal's color
// support, or "" when output should stay plain.
func formatterFor(w io.Writer) string {
	switch colorprofile.Detect(w, os.Environ()) {
	case colorprofile.TrueColor:
		return "terminal16m"
	case colorprofile.ANSI256:
		return "terminal256"
	case colorprofile.ANSI:
		return "terminal16"
	}
	return ""
}

// highlight syntax-highlights source with the named lexer. Falls back to
// the source unchanged.
func highlight(w io.Writer, source, lexerName string) string {
	name := formatterFor(w)
	if name == "" {
		return source
	}

	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		return source
	}

	formatter := formatters.Get(name)
	if formatter == nil {
		return source
	}

	style := styles.Get("catppuccin-mocha")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return strings.TrimRight(buf.String(), "\n") + "\n"
}
