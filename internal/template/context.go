package template

// PlaceholderName is the variable replaced by the contact name
const PlaceholderName = "nome"

// PreviewName stands in for the contact name when previewing a campaign
const PreviewName = "[NOME DO CONTATO]"

// Context holds the values available to a campaign text
type Context struct {
	Vars map[string]string `json:"vars"`
}

// NewContext creates an empty template context
func NewContext() *Context {
	return &Context{Vars: make(map[string]string)}
}

// ContactContext builds the context for sending to one contact
func ContactContext(name string) *Context {
	ctx := NewContext()
	ctx.Vars[PlaceholderName] = name
	return ctx
}

func (c *Context) lookup(key string) (string, bool) {
	if c == nil || c.Vars == nil {
		return "", false
	}
	v, ok := c.Vars[key]
	return v, ok
}
