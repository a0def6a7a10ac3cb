// Package templates renders transactional email bodies from templ components.
// Every component renders twice: as HTML for the HTML part and as plain
// text for the text part of the same message.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type plainKey struct{}

// Render takes a templ.Component and renders it to an HTML string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderText renders the plain text alternative of tpl.
func RenderText(ctx context.Context, tpl templ.Component) (string, error) {
	out, err := Render(context.WithValue(ctx, plainKey{}, true), tpl)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func plain(ctx context.Context) bool {
	v, _ := ctx.Value(plainKey{}).(bool)
	return v
}

// Text is an escaped run of text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if plain(ctx) {
			_, err := io.WriteString(w, s)
			return err
		}
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// Link renders an anchor in HTML and "label (url)" in text, or just the
// url when the label repeats it.
func Link(href, label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if plain(ctx) {
			out := label
			if label != href {
				out = label + " (" + href + ")"
			}
			_, err := io.WriteString(w, out)
			return err
		}
		_, err := io.WriteString(w, `<a href="`+templ.EscapeString(string(templ.URL(href)))+`">`+templ.EscapeString(label)+`</a>`)
		return err
	})
}

// Paragraph joins its parts into one block.
func Paragraph(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		open, end := "<p>", "</p>\n"
		if plain(ctx) {
			open, end = "", "\n\n"
		}
		if _, err := io.WriteString(w, open); err != nil {
			return err
		}
		if err := renderAll(ctx, w, parts); err != nil {
			return err
		}
		_, err := io.WriteString(w, end)
		return err
	})
}

// Letter is a greeting followed by paragraphs.
func Letter(name string, paragraphs ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Paragraph(Text("Hi "+name+",")).Render(ctx, w); err != nil {
			return err
		}
		return renderAll(ctx, w, paragraphs)
	})
}

// When renders c only if cond holds.
func When(cond bool, c templ.Component) templ.Component {
	if !cond {
		return templ.ComponentFunc(func(context.Context, io.Writer) error { return nil })
	}
	return c
}

func renderAll(ctx context.Context, w io.Writer, cs []templ.Component) error {
	for _, c := range cs {
		if err := c.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}
