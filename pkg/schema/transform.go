package schema

import (
	"fmt"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/printer"
)

// SchemaBuilder restricts and extends the local base schema before it enters
// composition: dropping the mutation type, keeping an explicit allow-list of
// query fields, and appending additional type and field definitions.
//
// Operations chain; the first error wins and SDL() reports it.
type SchemaBuilder struct {
	doc *ast.Document
	err error
}

func NewSchemaBuilder(sdl string) *SchemaBuilder {
	doc, err := parser.Parse(parser.ParseParams{Source: sdl})
	if err != nil {
		return &SchemaBuilder{err: fmt.Errorf("parse base schema: %w", err)}
	}
	return &SchemaBuilder{doc: doc}
}

// RemoveMutationType drops the schema's mutation root type and any schema
// block reference to it.
func (b *SchemaBuilder) RemoveMutationType() *SchemaBuilder {
	if b.err != nil {
		return b
	}

	mutationName := "Mutation"
	for _, def := range b.doc.Definitions {
		if sd, ok := def.(*ast.SchemaDefinition); ok {
			for _, op := range sd.OperationTypes {
				if op.Operation == "mutation" {
					mutationName = op.Type.Name.Value
				}
			}
		}
	}

	kept := b.doc.Definitions[:0]
	for _, def := range b.doc.Definitions {
		if od, ok := def.(*ast.ObjectDefinition); ok && od.Name.Value == mutationName {
			continue
		}
		if sd, ok := def.(*ast.SchemaDefinition); ok {
			ops := sd.OperationTypes[:0]
			for _, op := range sd.OperationTypes {
				if op.Operation != "mutation" {
					ops = append(ops, op)
				}
			}
			sd.OperationTypes = ops
		}
		kept = append(kept, def)
	}
	b.doc.Definitions = kept
	return b
}

// FilterQueryFields keeps only the allow-listed fields on the query root
// type.
func (b *SchemaBuilder) FilterQueryFields(allowed ...string) *SchemaBuilder {
	if b.err != nil {
		return b
	}

	allow := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allow[name] = true
	}

	query := b.queryDefinition()
	if query == nil {
		b.err = fmt.Errorf("base schema has no query root type")
		return b
	}

	kept := query.Fields[:0]
	for _, f := range query.Fields {
		if allow[f.Name.Value] {
			kept = append(kept, f)
		}
	}
	query.Fields = kept
	return b
}

// Extend appends the definitions of the given SDL snippet. "extend type"
// blocks merge their fields into the matching existing type; other
// definitions are added as new types.
func (b *SchemaBuilder) Extend(sdl string) *SchemaBuilder {
	if b.err != nil {
		return b
	}

	doc, err := parser.Parse(parser.ParseParams{Source: sdl})
	if err != nil {
		b.err = fmt.Errorf("parse schema extension: %w", err)
		return b
	}

	for _, def := range doc.Definitions {
		ext, ok := def.(*ast.TypeExtensionDefinition)
		if !ok {
			b.doc.Definitions = append(b.doc.Definitions, def)
			continue
		}
		base := b.objectDefinition(ext.Definition.Name.Value)
		if base == nil {
			b.doc.Definitions = append(b.doc.Definitions, ext.Definition)
			continue
		}
		base.Fields = append(base.Fields, ext.Definition.Fields...)
	}
	return b
}

// SDL serializes the transformed schema.
func (b *SchemaBuilder) SDL() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	printed, ok := printer.Print(b.doc).(string)
	if !ok {
		return "", fmt.Errorf("print transformed schema")
	}
	return printed, nil
}

func (b *SchemaBuilder) queryDefinition() *ast.ObjectDefinition {
	queryName := "Query"
	for _, def := range b.doc.Definitions {
		if sd, ok := def.(*ast.SchemaDefinition); ok {
			for _, op := range sd.OperationTypes {
				if op.Operation == "query" {
					queryName = op.Type.Name.Value
				}
			}
		}
	}
	return b.objectDefinition(queryName)
}

func (b *SchemaBuilder) objectDefinition(name string) *ast.ObjectDefinition {
	for _, def := range b.doc.Definitions {
		if od, ok := def.(*ast.ObjectDefinition); ok && od.Name.Value == name {
			return od
		}
	}
	return nil
}
