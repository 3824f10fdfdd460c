package schema

import (
	"fmt"
	"strings"
)

var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

// RenderSDL serializes an introspected type system into SDL text. The output
// is sufficient to rebuild an executable remote schema without a fresh
// introspection call, which is what the schema cache persists.
func RenderSDL(s *IntrospectionSchema) string {
	var b strings.Builder

	if needsSchemaBlock(s) {
		b.WriteString("schema {\n")
		if s.QueryType != nil {
			fmt.Fprintf(&b, "  query: %s\n", s.QueryType.Name)
		}
		if s.MutationType != nil {
			fmt.Fprintf(&b, "  mutation: %s\n", s.MutationType.Name)
		}
		if s.SubscriptionType != nil {
			fmt.Fprintf(&b, "  subscription: %s\n", s.SubscriptionType.Name)
		}
		b.WriteString("}\n\n")
	}

	for _, t := range s.Types {
		if strings.HasPrefix(t.Name, "__") {
			continue
		}
		if t.Kind == kindScalar && builtinScalars[t.Name] {
			continue
		}
		renderType(&b, t)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func needsSchemaBlock(s *IntrospectionSchema) bool {
	if s.QueryType != nil && s.QueryType.Name != "Query" {
		return true
	}
	if s.MutationType != nil && s.MutationType.Name != "Mutation" {
		return true
	}
	if s.SubscriptionType != nil && s.SubscriptionType.Name != "Subscription" {
		return true
	}
	return false
}

func renderType(b *strings.Builder, t IntrospectionType) {
	switch t.Kind {
	case kindScalar:
		fmt.Fprintf(b, "scalar %s\n", t.Name)
	case kindObject:
		fmt.Fprintf(b, "type %s%s {\n", t.Name, renderImplements(t.Interfaces))
		renderFields(b, t.Fields)
		b.WriteString("}\n")
	case kindInterface:
		fmt.Fprintf(b, "interface %s {\n", t.Name)
		renderFields(b, t.Fields)
		b.WriteString("}\n")
	case kindUnion:
		names := make([]string, len(t.PossibleTypes))
		for i, p := range t.PossibleTypes {
			names[i] = p.Name
		}
		fmt.Fprintf(b, "union %s = %s\n", t.Name, strings.Join(names, " | "))
	case kindEnum:
		fmt.Fprintf(b, "enum %s {\n", t.Name)
		for _, v := range t.EnumValues {
			fmt.Fprintf(b, "  %s\n", v.Name)
		}
		b.WriteString("}\n")
	case kindInputObject:
		fmt.Fprintf(b, "input %s {\n", t.Name)
		for _, f := range t.InputFields {
			fmt.Fprintf(b, "  %s\n", renderInput(f))
		}
		b.WriteString("}\n")
	}
}

func renderImplements(interfaces []IntrospectionTypeRef) string {
	if len(interfaces) == 0 {
		return ""
	}
	names := make([]string, len(interfaces))
	for i, ref := range interfaces {
		names[i] = ref.Name
	}
	return " implements " + strings.Join(names, " & ")
}

func renderFields(b *strings.Builder, fields []IntrospectionField) {
	for _, f := range fields {
		args := ""
		if len(f.Args) > 0 {
			parts := make([]string, len(f.Args))
			for i, a := range f.Args {
				parts[i] = renderInput(a)
			}
			args = "(" + strings.Join(parts, ", ") + ")"
		}
		fmt.Fprintf(b, "  %s%s: %s\n", f.Name, args, renderTypeRef(&f.Type))
	}
}

func renderInput(in IntrospectionInput) string {
	out := fmt.Sprintf("%s: %s", in.Name, renderTypeRef(&in.Type))
	if in.DefaultValue != nil {
		out += " = " + *in.DefaultValue
	}
	return out
}

func renderTypeRef(ref *IntrospectionTypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case kindNonNull:
		return renderTypeRef(ref.OfType) + "!"
	case kindList:
		return "[" + renderTypeRef(ref.OfType) + "]"
	default:
		return ref.Name
	}
}
