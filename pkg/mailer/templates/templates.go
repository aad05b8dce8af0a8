package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

const (
	VerifyEmail    = "verify_email"
	ForgotPassword = "forgot_password"
)

// EmailData is the data every template renders from.
type EmailData struct {
	Type          string `json:"Type"`
	Name          string `json:"Name"`
	Email         string `json:"Email"`
	AppName       string `json:"AppName"`
	CompanyName   string `json:"CompanyName"`
	SupportURL    string `json:"SupportURL"`
	ActionURL     string `json:"ActionURL"`
	ExpiresAtText string `json:"ExpiresAtText"`
}

// ToMap converts EmailData to the map form carried by an email job.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback, value any) any {
	switch x := value.(type) {
	case nil:
		return fallback
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
	}
	return value
}

var funcs = map[string]any{
	"default": defaultFn,
	"upper":   strings.ToUpper,
}

func renderFile(filename string, isHTML bool, data any) (string, error) {
	var buf bytes.Buffer
	var err error
	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmpl.FuncMap(funcs)).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(texttpl.FuncMap(funcs)).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
func Render(name string, data any) (subject, text, html string, err error) {
	if subject, err = renderFile(name+".subject.tmpl", false, data); err != nil {
		return "", "", "", err
	}
	if text, err = renderFile(name+".text.tmpl", false, data); err != nil {
		return "", "", "", err
	}
	if html, err = renderFile(name+".html.tmpl", true, data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
