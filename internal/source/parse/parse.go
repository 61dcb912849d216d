// Package parse holds the raw-field helpers shared by source adapters:
// salary formatting, nested-object extraction, and HTML-to-text reduction.
package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Negotiable is rendered when a source provides no salary bounds at all.
const Negotiable = "По договоренности"

// Salary renders a structured salary range as free text: "от {from} до {to}
// {currency}", keeping only the parts that are present. A nil or zero bound
// counts as absent. No bounds at all yields the negotiable sentinel.
func Salary(from, to *int, currency string) string {
	lower := from != nil && *from != 0
	upper := to != nil && *to != 0
	if !lower && !upper {
		return Negotiable
	}

	parts := make([]string, 0, 3)
	if lower {
		parts = append(parts, fmt.Sprintf("от %d", *from))
	}
	if upper {
		parts = append(parts, fmt.Sprintf("до %d", *to))
	}
	if currency != "" {
		parts = append(parts, currency)
	}
	return strings.Join(parts, " ")
}

// NamedObject is the nested reference shape both job boards use: one of
// `name` or `title` carries the display value.
type NamedObject struct {
	ID    string `json:"-"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Label resolves the object to its name, falling back to title.
func (o NamedObject) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Title
}

// JoinLabels concatenates every object's label back to back, matching how
// the sources render list-valued fields (work format, working hours).
func JoinLabels(objects []NamedObject) string {
	var b strings.Builder
	for _, o := range objects {
		b.WriteString(o.Label())
	}
	return b.String()
}

// JoinNames joins every object's label with the separator; used for skills.
func JoinNames(objects []NamedObject, sep string) string {
	labels := make([]string, 0, len(objects))
	for _, o := range objects {
		labels = append(labels, o.Label())
	}
	return strings.Join(labels, sep)
}

// PlainText strips markup from an HTML-bearing description, dropping script
// and style content entirely.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(doc.Text())
}

// FirstLine returns the first non-blank line of text, trimmed.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
