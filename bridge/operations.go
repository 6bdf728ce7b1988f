package bridge

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/resource"
)

// Param describes one operation argument.
type Param struct {
	Type wit.Type
	Name string
}

// Operation describes a query operation for tooling.
type Operation struct {
	Result wit.Type
	Name   string
	Doc    string
	Params []Param
}

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func record(name string, fields ...wit.Field) *wit.TypeDef {
	return named(name, &wit.Record{Fields: fields})
}

func listOf(name string, t wit.Type) *wit.TypeDef {
	return named(name, &wit.List{Type: t})
}

var (
	predictionType = record("prediction",
		wit.Field{Name: "index", Type: wit.U32{}},
		wit.Field{Name: "label", Type: wit.String{}},
		wit.Field{Name: "probability", Type: wit.F32{}},
	)
	neighborType = record("neighbor",
		wit.Field{Name: "index", Type: wit.U32{}},
		wit.Field{Name: "name", Type: wit.String{}},
		wit.Field{Name: "probability", Type: wit.F32{}},
	)
	componentType = record("component",
		wit.Field{Name: "probability", Type: wit.F32{}},
	)
)

var operations = []Operation{
	{
		Name:   "predict",
		Doc:    "top labels for a text",
		Params: []Param{{Name: "query", Type: wit.String{}}},
		Result: listOf("predictions", predictionType),
	},
	{
		Name: "analogy",
		Doc:  "words completing a:b :: c:?",
		Params: []Param{
			{Name: "a", Type: wit.String{}},
			{Name: "b", Type: wit.String{}},
			{Name: "c", Type: wit.String{}},
			{Name: "k", Type: wit.S32{}},
		},
		Result: listOf("neighbors", neighborType),
	},
	{
		Name: "neighbor",
		Doc:  "nearest words",
		Params: []Param{
			{Name: "query", Type: wit.String{}},
			{Name: "k", Type: wit.S32{}},
		},
		Result: listOf("neighbors", neighborType),
	},
	{
		Name:   "wordvec",
		Doc:    "embedding of a word",
		Params: []Param{{Name: "query", Type: wit.String{}}},
		Result: listOf("vector", componentType),
	},
	{
		Name:   "dimension",
		Doc:    "embedding dimension",
		Result: wit.S32{},
	},
}

// Operations returns descriptors of the query operations in a stable order.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// Call runs the named operation on h with string or int32 arguments as
// listed by Operations. Dimension results are rendered as a JSON number.
func (b *Bridge) Call(h resource.Handle, name string, args ...any) ([]byte, error) {
	var op *Operation
	for i := range operations {
		if operations[i].Name == name {
			op = &operations[i]
			break
		}
	}
	if op == nil {
		return nil, errors.New(errors.PhaseQuery, errors.KindUnsupported).
			Op(name).Detail("unknown operation").Build()
	}
	if len(args) != len(op.Params) {
		return nil, errors.New(errors.PhaseQuery, errors.KindInvalidInput).
			Op(name).Detail("expected %d arguments, got %d", len(op.Params), len(args)).Build()
	}

	strs := make([]string, 0, len(args))
	var k int32
	for i, p := range op.Params {
		switch p.Type.(type) {
		case wit.String:
			s, ok := args[i].(string)
			if !ok {
				return nil, badArg(name, p, args[i])
			}
			strs = append(strs, s)
		case wit.S32:
			v, ok := args[i].(int32)
			if !ok {
				return nil, badArg(name, p, args[i])
			}
			k = v
		}
	}

	switch name {
	case "predict":
		return b.Predict(h, strings.NewReader(strs[0]))
	case "analogy":
		return b.Analogy(h, strs[0], strs[1], strs[2], k)
	case "neighbor":
		return b.Neighbor(h, strs[0], k)
	case "wordvec":
		return b.Wordvec(h, strs[0])
	default:
		d, err := b.Dimension(h)
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprint(d)), nil
	}
}

func badArg(op string, p Param, v any) error {
	return errors.New(errors.PhaseQuery, errors.KindInvalidInput).
		Op(op).Value(v).Detail("argument %q: unexpected %T", p.Name, v).Build()
}
