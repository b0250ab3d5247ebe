package notifier

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// WriterNotifier prints messages as plain text, for the one-shot CLI.
type WriterNotifier struct {
	W io.Writer
}

func (w *WriterNotifier) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(w.W, PlainText(text))
	return err
}

// PlainText strips HTML tags and unescapes entities.
func PlainText(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
