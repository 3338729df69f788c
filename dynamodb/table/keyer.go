package table

import (
	"github.com/acksell/electro/dynamodb/keys"
)

// Keyer composes one key field of a document.
type Keyer interface {
	Key(doc map[string]any) (string, error)
}

// TemplateKeyer renders a key template from the document's facet values.
// Every facet the template references must be present.
func TemplateKeyer(t keys.Template) Keyer {
	return templateKeyer{t}
}

type templateKeyer struct {
	tmpl keys.Template
}

func (k templateKeyer) Key(doc map[string]any) (string, error) {
	return k.tmpl.Render(doc)
}
