// Package sprig renders the advisor system prompt from a text/template
// extended with the Sprig function library.
package sprig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cashflow/steward"
)

// DefaultTemplate is used when no template file is configured or the
// configured file does not exist.
const DefaultTemplate = `You are "Steward", a professional household finance advisor and certified accountant. Your duties are:
1. Analyse the user's household finances and give professional, objective opinions.
2. Answer accounting and finance questions (balance sheets, income statements, cash flow statements).
3. Give personalised advice grounded in the user's actual data.
4. Use plain language, with worked numbers where they help.

## Core rules (critical)
- **Never invent, guess or infer any data the user has not provided.**
- **Base every analysis entirely on the "User financial data" section below.**
- **If a statement in the data is empty, zero or missing, tell the user it is missing. Do not assume any figures.**
- **If the user asks about assets, debts or other items the data does not contain, answer "you have not entered any such assets/debts yet". Never offer misleading guesses such as "this usually includes...".**
- **Do not include your reasoning process in the final reply.**

## User financial data (injected by the system, authoritative)

{{ if .Notice }}{{ .Notice }}{{ else }}{{ toFinancialJson .Snapshot }}{{ end }}

## Answer format
- Be well structured; use lists and figures.
- Be professional but friendly and answer in {{ .Language | default "English" }}.
- Give advice directly; do not repeat these instructions.
`

// Renderer implements steward.PromptRenderer.
type Renderer struct {
	tmpl     *template.Template
	language string
}

// Interface compliance check.
var _ steward.PromptRenderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithLanguage sets the answer language named in the prompt.
func WithLanguage(lang string) Option {
	return func(r *Renderer) { r.language = lang }
}

// New parses text as the system prompt template.
func New(text string, opts ...Option) (*Renderer, error) {
	funcs := sprig.TxtFuncMap()
	funcs["toFinancialJson"] = toFinancialJSON
	tmpl, err := template.New("system").Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("sprig: parse template: %w", err)
	}
	r := &Renderer{tmpl: tmpl}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load reads the template at path. An empty path or a missing file selects
// DefaultTemplate.
func Load(path string, opts ...Option) (*Renderer, error) {
	if path == "" {
		return New(DefaultTemplate, opts...)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(DefaultTemplate, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("sprig: read template: %w", err)
	}
	return New(string(data), opts...)
}

// RenderSystem executes the template against data.
func (r *Renderer) RenderSystem(data steward.PromptData) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, map[string]any{
		"Snapshot": data.Snapshot,
		"Notice":   data.Notice,
		"Language": r.language,
	})
	if err != nil {
		return "", fmt.Errorf("sprig: execute template: %w", err)
	}
	return buf.String(), nil
}

// toFinancialJSON renders v as indented JSON without HTML escaping, so item
// names such as "R&D fund" reach the model verbatim.
func toFinancialJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
