// Package renderer turns coown reports into markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed *.md
var templates embed.FS

// RenderCapitals renders the capital table of an account to a markdown string.
func RenderCapitals(c *Capitals) string {
	partials := map[string]string{
		"capitals_currency": "capitals_currency.md",
	}
	return renderTemplate("capitals", "capitals.md", partials, c)
}

// RenderIncome renders the income of a deal to a markdown string.
func RenderIncome(i *Income) string {
	partials := map[string]string{
		"income_stale": "income_stale.md",
	}
	return renderTemplate("income", "income.md", partials, i)
}

// RenderDeals renders the list of deals to a markdown string.
func RenderDeals(d *Deals) string {
	return renderTemplate("deals", "deals.md", nil, d)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
