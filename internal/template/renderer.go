package template

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// defaultCacheSize bounds the compiled templates kept by a Renderer
const defaultCacheSize = 256

// segment is either literal text or a placeholder reference
type segment struct {
	text string
	key  string
}

type compiled struct {
	segments []segment
}

// Renderer substitutes {{name}} placeholders. Placeholders without a
// value in the context are kept verbatim.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*compiled
	limit     int
}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{
		templates: make(map[string]*compiled),
		limit:     defaultCacheSize,
	}
}

// generateTemplateName generates a unique name for a template based on its content
func generateTemplateName(tmpl string) string {
	hash := sha256.Sum256([]byte(tmpl))
	return fmt.Sprintf("tmpl_%s", hex.EncodeToString(hash[:8]))
}

func compile(tmpl string) *compiled {
	var c compiled
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(tmpl, -1) {
		if m[0] > last {
			c.segments = append(c.segments, segment{text: tmpl[last:m[0]]})
		}
		c.segments = append(c.segments, segment{text: tmpl[m[0]:m[1]], key: tmpl[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(tmpl) {
		c.segments = append(c.segments, segment{text: tmpl[last:]})
	}
	return &c
}

func (r *Renderer) get(tmpl string) *compiled {
	name := generateTemplateName(tmpl)
	r.mu.RLock()
	c, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	c = compile(tmpl)
	r.mu.Lock()
	if len(r.templates) >= r.limit {
		clear(r.templates)
	}
	r.templates[name] = c
	r.mu.Unlock()
	return c
}

// Render renders a template with the given context
func (r *Renderer) Render(tmpl string, ctx *Context) string {
	c := r.get(tmpl)
	var b strings.Builder
	b.Grow(len(tmpl))
	for _, s := range c.segments {
		if s.key != "" {
			if v, ok := ctx.lookup(s.key); ok {
				b.WriteString(v)
				continue
			}
		}
		b.WriteString(s.text)
	}
	return b.String()
}

// placeholders lists the distinct placeholder names used by tmpl
func (r *Renderer) placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, s := range r.get(tmpl).segments {
		if s.key == "" {
			continue
		}
		if _, ok := seen[s.key]; ok {
			continue
		}
		seen[s.key] = struct{}{}
		names = append(names, s.key)
	}
	return names
}

var defaultRenderer = NewRenderer()

// Render replaces every {{nome}} in text with the contact name
func Render(text, contactName string) string {
	return defaultRenderer.Render(text, ContactContext(contactName))
}

// Preview renders text with a stand-in for the contact name
func Preview(text string) string {
	return Render(text, PreviewName)
}
