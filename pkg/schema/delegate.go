package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/printer"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/fetcher"
)

// DelegatingResolver produces resolvers that forward a root field, with its
// full sub-selection, to the remote source owning it. The delegated document
// is rebuilt from the field's AST; referenced fragments and variables of the
// inbound operation are carried along.
//
// A remote failure surfaces as an error on the delegated field only; sibling
// fields keep resolving.
func DelegatingResolver(f Fetcher) FieldResolverFactory {
	return func(fieldName string) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			if len(p.Info.FieldASTs) == 0 {
				return nil, fmt.Errorf("delegation of %q: missing field AST", fieldName)
			}
			field := p.Info.FieldASTs[0]

			query, varNames, err := delegateDocument(field, p.Info)
			if err != nil {
				return nil, fmt.Errorf("delegation of %q: %w", fieldName, err)
			}

			variables := map[string]interface{}{}
			for name := range varNames {
				if value, ok := p.Info.VariableValues[name]; ok {
					variables[name] = value
				}
			}

			resp, err := f.Fetch(p.Context, fetcher.Operation{
				Query:     query,
				Variables: variables,
			})
			if err != nil {
				return nil, err
			}

			key := fieldName
			if field.Alias != nil {
				key = field.Alias.Value
			}
			value, ok, err := resp.Field(key)
			if err != nil {
				return nil, err
			}
			if value == nil {
				if len(resp.Errors) > 0 {
					return nil, &resp.Errors[0]
				}
				if !ok {
					return nil, fmt.Errorf("remote source returned no %q field", key)
				}
			}
			return value, nil
		}
	}
}

// delegateDocument builds the operation text sent to the remote source and
// reports the names of the variables it references.
func delegateDocument(field *ast.Field, info graphql.ResolveInfo) (string, map[string]bool, error) {
	varNames := map[string]bool{}
	fragmentNames := map[string]bool{}
	collectUsage(field.SelectionSet, info.Fragments, varNames, fragmentNames)
	collectArgumentVariables(field.Arguments, varNames)

	operation := "query"
	var varDefs []*ast.VariableDefinition
	if op, ok := info.Operation.(*ast.OperationDefinition); ok {
		if op.Operation != "" {
			operation = op.Operation
		}
		for _, def := range op.VariableDefinitions {
			if def.Variable != nil && def.Variable.Name != nil && varNames[def.Variable.Name.Value] {
				varDefs = append(varDefs, def)
			}
		}
	}

	opDef := ast.NewOperationDefinition(&ast.OperationDefinition{
		Operation:           operation,
		VariableDefinitions: varDefs,
		SelectionSet: ast.NewSelectionSet(&ast.SelectionSet{
			Selections: []ast.Selection{field},
		}),
	})

	definitions := []ast.Node{opDef}
	for name := range fragmentNames {
		def, ok := info.Fragments[name]
		if !ok {
			return "", nil, fmt.Errorf("unknown fragment %q", name)
		}
		definitions = append(definitions, def)
	}

	doc := ast.NewDocument(&ast.Document{Definitions: definitions})
	printed, ok := printer.Print(doc).(string)
	if !ok {
		return "", nil, fmt.Errorf("print delegated operation")
	}
	return printed, varNames, nil
}

func collectUsage(set *ast.SelectionSet, fragments map[string]ast.Definition, varNames, fragmentNames map[string]bool) {
	if set == nil {
		return
	}
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			collectArgumentVariables(sel.Arguments, varNames)
			collectUsage(sel.SelectionSet, fragments, varNames, fragmentNames)
		case *ast.InlineFragment:
			collectUsage(sel.SelectionSet, fragments, varNames, fragmentNames)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			if fragmentNames[name] {
				continue
			}
			fragmentNames[name] = true
			if def, ok := fragments[name]; ok {
				if frag, ok := def.(*ast.FragmentDefinition); ok {
					collectUsage(frag.SelectionSet, fragments, varNames, fragmentNames)
				}
			}
		}
	}
}

func collectArgumentVariables(args []*ast.Argument, varNames map[string]bool) {
	for _, arg := range args {
		collectValueVariables(arg.Value, varNames)
	}
}

func collectValueVariables(value ast.Value, varNames map[string]bool) {
	switch v := value.(type) {
	case *ast.Variable:
		if v.Name != nil {
			varNames[v.Name.Value] = true
		}
	case *ast.ListValue:
		for _, item := range v.Values {
			collectValueVariables(item, varNames)
		}
	case *ast.ObjectValue:
		for _, f := range v.Fields {
			collectValueVariables(f.Value, varNames)
		}
	}
}
