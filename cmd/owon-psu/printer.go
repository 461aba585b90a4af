package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer renders results in the format selected by --format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatText, formatJSON, formatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q, want text, json or yaml", format)
	}

	return &printer{w: w, format: format}, nil
}

// print writes v as JSON or YAML, or calls text for the text format.
func (p *printer) print(v any, text func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		return json.NewEncoder(p.w).Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}

// message prints a plain progress line in text mode only.
func (p *printer) message(format string, args ...any) {
	if p.format == formatText {
		fmt.Fprintf(p.w, format+"\n", args...)
	}
}

func optionalFloat(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}

	return fmt.Sprintf("%.3f%s", *v, unit)
}

func optionalValue[T any](v *T) string {
	if v == nil {
		return "n/a"
	}

	return fmt.Sprint(*v)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}
