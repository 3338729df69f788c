package surface

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/acksell/electro/dynamodb/permute"
	"github.com/acksell/electro/dynamodb/schema"
)

//go:embed template/typedef.tmpl
var templates embed.FS

// TypeUnion renders each permutation as a record of its facets typed by
// types, joined as alternatives: `{ a: string } | { a: string; b: number }`.
// No permutations render as `{}`.
func TypeUnion(perms []permute.Permutation, types map[string]string) string {
	if len(perms) == 0 {
		return "{}"
	}
	members := make([]string, len(perms))
	for i, p := range perms {
		fields := make([]string, len(p))
		for j, f := range p {
			typ, ok := types[f.Name]
			if !ok {
				typ = string(schema.TypeAny)
			}
			fields[j] = f.Name + ": " + typ
		}
		members[i] = "{ " + strings.Join(fields, "; ") + " }"
	}
	return strings.Join(members, " | ")
}

type typedefData struct {
	Export    string
	IsService bool
	Instances []instanceData
}

type instanceData struct {
	Name           string
	Kind           string
	Attributes     []attributeData
	Enums          []enumData
	Indexes        []indexData
	KeyNames       []string
	TableIndexName string
}

type attributeData struct {
	Name     string
	Type     string
	Optional bool
	ReadOnly bool
}

type enumData struct {
	Name   string
	Values []string
}

type indexData struct {
	TypeName string
	Name     string
	Union    string
}

// Typedef renders the static declarations of a schema: per instance its item
// shape, enum unions, one key union per access pattern and its key fields.
func Typedef(s *schema.Schema) (string, error) {
	data := typedefData{
		Export:    s.Name,
		IsService: s.Kind == schema.KindService,
	}
	for _, inst := range s.Instances {
		d, err := instanceTypedef(inst)
		if err != nil {
			return "", err
		}
		data.Instances = append(data.Instances, d)
	}

	tmpl, err := template.New("typedef.tmpl").Funcs(tmplFuncs).ParseFS(templates, "template/typedef.tmpl")
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

func instanceTypedef(inst *schema.Instance) (instanceData, error) {
	d := instanceData{
		Name:           inst.Name,
		Kind:           inst.Kind.String(),
		KeyNames:       inst.AllKeyFieldNames(),
		TableIndexName: indexTypeName(inst.PrimaryIndex().AccessPattern),
	}
	for _, a := range inst.Attributes() {
		d.Attributes = append(d.Attributes, attributeData{
			Name:     a.Name,
			Type:     inst.AttributeTypeName(a.Name),
			Optional: !a.Required,
			ReadOnly: a.ReadOnly,
		})
		if a.Type == schema.TypeEnum {
			d.Enums = append(d.Enums, enumData{Name: inst.AttributeTypeName(a.Name), Values: a.EnumValues})
		}
	}

	types := inst.AttributeTypes()
	for _, idx := range inst.Indexes() {
		perms, err := permute.ForIndex(inst, idx.ID)
		if err != nil {
			return instanceData{}, err
		}
		d.Indexes = append(d.Indexes, indexData{
			TypeName: indexTypeName(idx.AccessPattern),
			Name:     idx.AccessPattern,
			Union:    TypeUnion(perms, types),
		})
	}
	return d, nil
}

func indexTypeName(accessPattern string) string {
	return accessPattern + "_index"
}

var tmplFuncs = template.FuncMap{
	"pascal": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"stringUnion": func(values []string) string {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = strconv.Quote(v)
		}
		return strings.Join(quoted, " | ")
	},
}
