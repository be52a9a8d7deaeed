package scene

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Number is a literal float or a computed expression written as {expr: "..."}.
type Number struct {
	Value float64
	Expr  string
}

// Lit returns a literal Number.
func Lit(v float64) Number { return Number{Value: v} }

// Expr returns an expression Number.
func Expr(src string) Number { return Number{Expr: src} }

func (n Number) IsExpr() bool { return n.Expr != "" }

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: number expected, got %q", node.Line, node.Value)
		}
		*n = Number{Value: v}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Expr string `yaml:"expr"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.Expr == "" {
			return fmt.Errorf("line %d: expression value needs an expr key", node.Line)
		}
		*n = Number{Expr: raw.Expr}
		return nil
	default:
		return fmt.Errorf("line %d: number or {expr} expected", node.Line)
	}
}

// Vec2Value is a vector whose components are Numbers, or a single expression
// evaluating to a table with x and y fields.
type Vec2Value struct {
	X, Y Number
	Expr string
}

func (v *Vec2Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: vector must be a mapping", node.Line)
	}
	var raw struct {
		X    Number `yaml:"x"`
		Y    Number `yaml:"y"`
		Expr string `yaml:"expr"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = Vec2Value{X: raw.X, Y: raw.Y, Expr: raw.Expr}
	return nil
}

// ValueKind discriminates Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindNumber
	KindString
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a variable-store value: number, string or bool. A Value decoded from
// {expr: "..."} carries the expression and no kind until resolved.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
	Expr string
}

func NumberValue(v float64) Value { return Value{Kind: KindNumber, Num: v} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

func (v Value) IsExpr() bool { return v.Expr != "" }
func (v Value) IsSet() bool  { return v.Kind != KindNone || v.Expr != "" }

// Number converts the value for numeric use. Bools map to 0/1; strings are parsed
// and fall back to 0.
func (v Value) Number() Number {
	if v.Expr != "" {
		return Number{Expr: v.Expr}
	}
	return Lit(v.Float())
}

// Float returns the literal numeric reading of v.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Truthy follows the usual scripting rules: false, 0, "" and none are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	}
	return false
}

// Equal compares kind and literal payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	}
	return true
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	if v.Expr != "" {
		return "{expr: " + v.Expr + "}"
	}
	return ""
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return fmt.Errorf("line %d: bad number %q", node.Line, node.Value)
			}
			*v = NumberValue(f)
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*v = BoolValue(b)
		case "!!null":
			*v = Value{}
		default:
			*v = StringValue(node.Value)
		}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Expr string `yaml:"expr"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.Expr == "" {
			return fmt.Errorf("line %d: expression value needs an expr key", node.Line)
		}
		*v = Value{Expr: raw.Expr}
		return nil
	default:
		return fmt.Errorf("line %d: scalar or {expr} expected", node.Line)
	}
}
