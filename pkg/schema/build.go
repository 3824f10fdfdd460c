package schema

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// FieldResolverFactory produces the resolver bound to a root field. Remote
// sources use a delegating factory, the local source an indirection through
// the per-request root bindings.
type FieldResolverFactory func(fieldName string) graphql.FieldResolveFn

// Registry holds the named types shared by all sources of one composition.
// The first registration of a name wins; sources are built in ascending sort
// order, so a conflict always resolves to the source with the numerically
// lowest sort order.
type Registry struct {
	types map[string]graphql.Type
}

func NewRegistry() *Registry {
	return &Registry{
		types: map[string]graphql.Type{
			"String":  graphql.String,
			"Int":     graphql.Int,
			"Float":   graphql.Float,
			"Boolean": graphql.Boolean,
			"ID":      graphql.ID,
		},
	}
}

// Lookup returns the winning type registered under name.
func (r *Registry) Lookup(name string) (graphql.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

func (r *Registry) register(name string, t graphql.Type) {
	if _, exists := r.types[name]; exists {
		return
	}
	r.types[name] = t
}

// BuildOptions configures one source's contribution to a composition.
type BuildOptions struct {
	// Registry shared across the composition's sources. Required.
	Registry *Registry
	// RootResolver is applied to every root operation field of this source.
	RootResolver FieldResolverFactory
	// TypeResolvers binds resolvers to fields of named (non-root) types,
	// keyed by type name then field name.
	TypeResolvers map[string]map[string]graphql.FieldResolveFn
}

// SourceFields is a source's root operation contribution. Named types land in
// the shared registry as a side effect of Build.
type SourceFields struct {
	Query    graphql.Fields
	Mutation graphql.Fields
}

type builder struct {
	reg  *Registry
	opts BuildOptions

	objects    map[string]*ast.ObjectDefinition
	interfaces map[string]*ast.InterfaceDefinition
	unions     map[string]*ast.UnionDefinition
	enums      map[string]*ast.EnumDefinition
	scalars    map[string]*ast.ScalarDefinition
	inputs     map[string]*ast.InputObjectDefinition

	rootNames map[string]string // operation -> type name
}

// Build parses one source's SDL and registers its named types into the
// shared registry, returning the source's root fields. Root operation types
// themselves are never registered; the composer merges root fields across
// sources explicitly.
func Build(sdl string, opts BuildOptions) (*SourceFields, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("schema build requires a shared registry")
	}

	doc, err := parser.Parse(parser.ParseParams{Source: sdl})
	if err != nil {
		return nil, fmt.Errorf("parse SDL: %w", err)
	}

	b := &builder{
		reg:        opts.Registry,
		opts:       opts,
		objects:    map[string]*ast.ObjectDefinition{},
		interfaces: map[string]*ast.InterfaceDefinition{},
		unions:     map[string]*ast.UnionDefinition{},
		enums:      map[string]*ast.EnumDefinition{},
		scalars:    map[string]*ast.ScalarDefinition{},
		inputs:     map[string]*ast.InputObjectDefinition{},
		rootNames: map[string]string{
			"query":    "Query",
			"mutation": "Mutation",
		},
	}

	var extensions []*ast.TypeExtensionDefinition

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectDefinition:
			b.objects[d.Name.Value] = d
		case *ast.InterfaceDefinition:
			b.interfaces[d.Name.Value] = d
		case *ast.UnionDefinition:
			b.unions[d.Name.Value] = d
		case *ast.EnumDefinition:
			b.enums[d.Name.Value] = d
		case *ast.ScalarDefinition:
			b.scalars[d.Name.Value] = d
		case *ast.InputObjectDefinition:
			b.inputs[d.Name.Value] = d
		case *ast.SchemaDefinition:
			for _, op := range d.OperationTypes {
				b.rootNames[op.Operation] = op.Type.Name.Value
			}
		case *ast.TypeExtensionDefinition:
			extensions = append(extensions, d)
		}
	}

	for _, ext := range extensions {
		name := ext.Definition.Name.Value
		if base, ok := b.objects[name]; ok {
			base.Fields = append(base.Fields, ext.Definition.Fields...)
		} else {
			b.objects[name] = ext.Definition
		}
	}

	rootTypeNames := map[string]bool{}
	for _, name := range b.rootNames {
		rootTypeNames[name] = true
	}

	// Register named types. Unions last: their member list is eager and
	// needs the member objects registered first.
	for name, def := range b.scalars {
		b.reg.register(name, b.buildScalar(def))
	}
	for name, def := range b.enums {
		b.reg.register(name, b.buildEnum(def))
	}
	for name, def := range b.inputs {
		b.reg.register(name, b.buildInput(def))
	}
	for name, def := range b.interfaces {
		b.reg.register(name, b.buildInterface(def))
	}
	for name, def := range b.objects {
		if rootTypeNames[name] {
			continue
		}
		b.reg.register(name, b.buildObject(def))
	}
	for name, def := range b.unions {
		b.reg.register(name, b.buildUnion(def))
	}

	out := &SourceFields{}
	if def, ok := b.objects[b.rootNames["query"]]; ok {
		out.Query = b.buildRootFields(def)
	}
	if def, ok := b.objects[b.rootNames["mutation"]]; ok {
		out.Mutation = b.buildRootFields(def)
	}
	return out, nil
}

func (b *builder) buildRootFields(def *ast.ObjectDefinition) graphql.Fields {
	fields := graphql.Fields{}
	for _, f := range def.Fields {
		name := f.Name.Value
		var resolve graphql.FieldResolveFn
		if b.opts.RootResolver != nil {
			resolve = b.opts.RootResolver(name)
		}
		fields[name] = &graphql.Field{
			Type:    b.outputType(f.Type),
			Args:    b.buildArgs(f.Arguments),
			Resolve: resolve,
		}
	}
	return fields
}

func (b *builder) buildObject(def *ast.ObjectDefinition) *graphql.Object {
	name := def.Name.Value
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, f := range def.Fields {
				fieldName := f.Name.Value
				var resolve graphql.FieldResolveFn
				if m, ok := b.opts.TypeResolvers[name]; ok {
					resolve = m[fieldName]
				}
				fields[fieldName] = &graphql.Field{
					Type:    b.outputType(f.Type),
					Args:    b.buildArgs(f.Arguments),
					Resolve: resolve,
				}
			}
			return fields
		}),
		Interfaces: graphql.InterfacesThunk(func() []*graphql.Interface {
			var out []*graphql.Interface
			for _, ref := range def.Interfaces {
				if t, ok := b.reg.Lookup(ref.Name.Value); ok {
					if iface, ok := t.(*graphql.Interface); ok {
						out = append(out, iface)
					}
				}
			}
			return out
		}),
	})
}

func (b *builder) buildInterface(def *ast.InterfaceDefinition) *graphql.Interface {
	name := def.Name.Value
	return graphql.NewInterface(graphql.InterfaceConfig{
		Name: name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, f := range def.Fields {
				fields[f.Name.Value] = &graphql.Field{
					Type: b.outputType(f.Type),
					Args: b.buildArgs(f.Arguments),
				}
			}
			return fields
		}),
		ResolveType: b.resolveByTypename(),
	})
}

func (b *builder) buildUnion(def *ast.UnionDefinition) *graphql.Union {
	var members []*graphql.Object
	for _, ref := range def.Types {
		if t, ok := b.reg.Lookup(ref.Name.Value); ok {
			if obj, ok := t.(*graphql.Object); ok {
				members = append(members, obj)
			}
		}
	}
	return graphql.NewUnion(graphql.UnionConfig{
		Name:        def.Name.Value,
		Types:       members,
		ResolveType: b.resolveByTypename(),
	})
}

// resolveByTypename resolves abstract types for delegated values, which are
// plain maps carrying __typename from the remote response.
func (b *builder) resolveByTypename() graphql.ResolveTypeFn {
	return func(p graphql.ResolveTypeParams) *graphql.Object {
		m, ok := p.Value.(map[string]interface{})
		if !ok {
			return nil
		}
		typename, ok := m["__typename"].(string)
		if !ok {
			return nil
		}
		if t, ok := b.reg.Lookup(typename); ok {
			if obj, ok := t.(*graphql.Object); ok {
				return obj
			}
		}
		return nil
	}
}

func (b *builder) buildEnum(def *ast.EnumDefinition) *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	for _, v := range def.Values {
		values[v.Name.Value] = &graphql.EnumValueConfig{Value: v.Name.Value}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:   def.Name.Value,
		Values: values,
	})
}

// buildScalar builds a passthrough custom scalar. Delegated values are
// already serialized by the remote source, so no coercion is applied.
func (b *builder) buildScalar(def *ast.ScalarDefinition) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name: def.Name.Value,
		Serialize: func(value interface{}) interface{} {
			return value
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			return valueFromLiteral(valueAST)
		},
	})
}

func (b *builder) buildInput(def *ast.InputObjectDefinition) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: def.Name.Value,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}
			for _, f := range def.Fields {
				field := &graphql.InputObjectFieldConfig{
					Type: b.inputType(f.Type),
				}
				if f.DefaultValue != nil {
					field.DefaultValue = valueFromLiteral(f.DefaultValue)
				}
				fields[f.Name.Value] = field
			}
			return fields
		}),
	})
}

func (b *builder) buildArgs(args []*ast.InputValueDefinition) graphql.FieldConfigArgument {
	if len(args) == 0 {
		return nil
	}
	out := graphql.FieldConfigArgument{}
	for _, a := range args {
		cfg := &graphql.ArgumentConfig{
			Type: b.inputType(a.Type),
		}
		if a.DefaultValue != nil {
			cfg.DefaultValue = valueFromLiteral(a.DefaultValue)
		}
		out[a.Name.Value] = cfg
	}
	return out
}

func (b *builder) outputType(t ast.Type) graphql.Output {
	return b.resolveType(t)
}

func (b *builder) inputType(t ast.Type) graphql.Input {
	return b.resolveType(t)
}

func (b *builder) resolveType(t ast.Type) graphql.Type {
	switch tt := t.(type) {
	case *ast.NonNull:
		inner := b.resolveType(tt.Type)
		if inner == nil {
			return nil
		}
		return graphql.NewNonNull(inner)
	case *ast.List:
		inner := b.resolveType(tt.Type)
		if inner == nil {
			return nil
		}
		return graphql.NewList(inner)
	case *ast.Named:
		named, _ := b.reg.Lookup(tt.Name.Value)
		return named
	default:
		return nil
	}
}

func valueFromLiteral(v ast.Value) interface{} {
	switch vv := v.(type) {
	case *ast.IntValue:
		n, err := strconv.Atoi(vv.Value)
		if err != nil {
			return nil
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(vv.Value, 64)
		if err != nil {
			return nil
		}
		return f
	case *ast.StringValue:
		return vv.Value
	case *ast.BooleanValue:
		return vv.Value
	case *ast.EnumValue:
		return vv.Value
	case *ast.ListValue:
		out := make([]interface{}, len(vv.Values))
		for i, item := range vv.Values {
			out[i] = valueFromLiteral(item)
		}
		return out
	case *ast.ObjectValue:
		out := map[string]interface{}{}
		for _, f := range vv.Fields {
			out[f.Name.Value] = valueFromLiteral(f.Value)
		}
		return out
	default:
		return nil
	}
}
