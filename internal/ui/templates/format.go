package templates

import (
	"fmt"
	"io"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func formatCount(n int) string {
	return newPrinter().Sprintf("%d", n)
}

func formatShare(v float64) string {
	return newPrinter().Sprintf("%.1f%%", v*100)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// htmlWriter keeps the first write error so that components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

// printf writes format with every argument HTML escaped.
func (hw *htmlWriter) printf(format string, args ...any) {
	if hw.err != nil {
		return
	}
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(fmt.Sprint(a))
	}
	_, hw.err = fmt.Fprintf(hw.w, format, escaped...)
}
