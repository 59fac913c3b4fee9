// Package render supplies the html/template engine behind page generation.
// Templates can come from the embedded defaults, a directory on disk, or a
// theme selection, and always expose the same helper functions.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/thelyad/postpress/pkg/interfaces"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Template names resolved by the generator.
const (
	PostTemplate  = "post"
	IndexTemplate = "index"
)

// NewDefaultRenderer returns a renderer backed by the embedded post and index
// templates that reproduce the published site's page chrome.
func NewDefaultRenderer() (interfaces.TemplateRenderer, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("render: embedded templates: %w", err)
	}
	return NewRenderer(sub), nil
}

// NewDirRenderer returns a renderer that loads *.tmpl and *.html files from a
// directory, letting sites override the defaults without recompiling.
func NewDirRenderer(dir string) (interfaces.TemplateRenderer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("render: inspect template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("render: template path %q is not a directory", dir)
	}
	return NewRenderer(os.DirFS(dir)), nil
}

// NewRenderer wraps an arbitrary filesystem of templates. Parsing is deferred
// until first use so filters can still be registered after construction.
func NewRenderer(fsys fs.FS) interfaces.TemplateRenderer {
	return &goTemplateRenderer{
		fsys:    fsys,
		filters: template.FuncMap{},
		globals: map[string]any{},
	}
}

type goTemplateRenderer struct {
	fsys fs.FS

	mu      sync.Mutex
	once    sync.Once
	tpl     *template.Template
	err     error
	filters template.FuncMap
	globals map[string]any
}

func (r *goTemplateRenderer) ensureTemplates() (*template.Template, error) {
	r.once.Do(func() {
		var files []string
		err := fs.WalkDir(r.fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			ext := strings.ToLower(pathExt(path))
			if ext != ".html" && ext != ".tmpl" {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			r.err = err
			return
		}
		if len(files) == 0 {
			r.err = fmt.Errorf("render: no templates found")
			return
		}

		funcs := builtinFuncs()
		r.mu.Lock()
		for name, fn := range r.filters {
			funcs[name] = fn
		}
		r.mu.Unlock()

		r.tpl, r.err = template.New("site").Funcs(funcs).ParseFS(r.fsys, files...)
	})
	return r.tpl, r.err
}

func (r *goTemplateRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(name, data, out...)
}

func (r *goTemplateRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tpl, err := r.ensureTemplates()
	if err != nil {
		return "", err
	}
	if tpl.Lookup(name) == nil {
		return "", fmt.Errorf("render: template %q not found", name)
	}

	var writer io.Writer
	var buffer *bytes.Buffer
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	} else {
		buffer = &bytes.Buffer{}
		writer = buffer
	}

	if err := tpl.ExecuteTemplate(writer, name, r.mergeGlobals(data)); err != nil {
		return "", err
	}
	if buffer != nil {
		return buffer.String(), nil
	}
	return "", nil
}

func (r *goTemplateRenderer) RenderString(content string, data any, out ...io.Writer) (string, error) {
	funcs := builtinFuncs()
	r.mu.Lock()
	for name, fn := range r.filters {
		funcs[name] = fn
	}
	r.mu.Unlock()

	tpl, err := template.New("inline").Funcs(funcs).Parse(content)
	if err != nil {
		return "", err
	}

	var writer io.Writer
	var buffer *bytes.Buffer
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	} else {
		buffer = &bytes.Buffer{}
		writer = buffer
	}

	if err := tpl.Execute(writer, r.mergeGlobals(data)); err != nil {
		return "", err
	}
	if buffer != nil {
		return buffer.String(), nil
	}
	return "", nil
}

// RegisterFilter exposes a two-argument filter as a template function. Filters
// must be registered before the first render because html/template resolves
// functions at parse time.
func (r *goTemplateRenderer) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return fmt.Errorf("render: filter requires name and function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tpl != nil || r.err != nil {
		return fmt.Errorf("render: cannot register filter %q after templates were parsed", name)
	}
	r.filters[name] = func(input any, params ...any) (any, error) {
		var param any
		if len(params) > 0 {
			param = params[0]
		}
		return fn(input, param)
	}
	return nil
}

// GlobalContext merges the supplied map into every render payload that is a
// map itself. Struct payloads are passed through untouched.
func (r *goTemplateRenderer) GlobalContext(data any) error {
	values, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("render: global context expects map[string]any, got %T", data)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range values {
		r.globals[key] = value
	}
	return nil
}

func (r *goTemplateRenderer) mergeGlobals(data any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.globals) == 0 {
		return data
	}
	payload, ok := data.(map[string]any)
	if !ok {
		return data
	}
	merged := make(map[string]any, len(r.globals)+len(payload))
	for key, value := range r.globals {
		merged[key] = value
	}
	for key, value := range payload {
		merged[key] = value
	}
	return merged
}

func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(value any) template.HTML { return toHTML(value) },
		"formatDate": func(layout string, value time.Time) string {
			if value.IsZero() {
				return ""
			}
			return value.Format(layout)
		},
	}
}

func toHTML(value any) template.HTML {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case template.HTML:
		return v
	case []byte:
		return template.HTML(v)
	case string:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}

func pathExt(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[idx:]
	}
	return ""
}
