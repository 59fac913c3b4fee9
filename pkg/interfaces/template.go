package interfaces

import (
	"io"
)

// TemplateRenderer abstracts the template engine used to produce HTML pages.
// Implementations receive the template name plus a data payload and return the
// rendered output, optionally streaming into the supplied writer instead.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
