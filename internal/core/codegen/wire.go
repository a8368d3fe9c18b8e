package codegen

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// wireInstruction is the JSON/YAML wire shape spec §6 requires to be
// "bit-exact on opcode names and operand encoding (I64, F64, Bool,
// String)": the opcode is serialized by name, and only the operand field
// actually used by that opcode is ever populated in the encoded form.
type wireInstruction struct {
	Op     string   `json:"op" yaml:"op"`
	I64    *int64   `json:"i64,omitempty" yaml:"i64,omitempty"`
	F64    *float64 `json:"f64,omitempty" yaml:"f64,omitempty"`
	Bool   *bool    `json:"bool,omitempty" yaml:"bool,omitempty"`
	String *string  `json:"string,omitempty" yaml:"string,omitempty"`
	Then   *int     `json:"then,omitempty" yaml:"then,omitempty"`
	Else   *int     `json:"else,omitempty" yaml:"else,omitempty"`
}

func toWire(i Instruction) wireInstruction {
	w := wireInstruction{Op: i.Op.String()}
	switch i.Op {
	case OpLoadInt, OpGetLocal, OpSetLocal, OpInitLocal, OpGetArgument, OpCall, OpCallField:
		v := i.I64
		w.I64 = &v
	case OpLoadFloat:
		v := i.F64
		w.F64 = &v
	case OpLoadBool:
		v := i.Bool
		w.Bool = &v
	case OpLoadString:
		v := i.String
		w.String = &v
	case OpBranch:
		v := i.Then
		w.Then = &v
	case OpConditionalBranch:
		then, els := i.Then, i.Else
		w.Then = &then
		w.Else = &els
	}
	if i.Op == OpCallField {
		// CallField carries both a method name and an argument count.
		s := i.String
		w.String = &s
	}
	return w
}

type wireBlock struct {
	ID   int               `json:"id" yaml:"id"`
	Code []wireInstruction `json:"code" yaml:"code"`
}

// wireFunction is the top-level serialized unit: one compiled
// FunctionBuilder plus its nested children, keyed by the unique names
// emitClosure generated for them.
type wireFunction struct {
	Name     string                  `json:"name" yaml:"name"`
	Params   []string                `json:"params" yaml:"params"`
	Blocks   []wireBlock             `json:"blocks" yaml:"blocks"`
	Children map[string]wireFunction `json:"children,omitempty" yaml:"children,omitempty"`
}

func toWireFunction(fb *FunctionBuilder) wireFunction {
	blocks := make([]wireBlock, len(fb.Blocks))
	for i, b := range fb.Blocks {
		code := make([]wireInstruction, len(b.Code))
		for j, ins := range b.Code {
			code[j] = toWire(ins)
		}
		blocks[i] = wireBlock{ID: b.ID, Code: code}
	}
	var children map[string]wireFunction
	if len(fb.Children) > 0 {
		children = make(map[string]wireFunction, len(fb.Children))
		for name, child := range fb.Children {
			children[name] = toWireFunction(child)
		}
	}
	return wireFunction{Name: fb.Name, Params: fb.Params, Blocks: blocks, Children: children}
}

// ToJSON renders fb bit-exact on opcode names and operand encoding
// (spec §6), the canonical interchange format for handing a compiled
// function to an external VM.
func (fb *FunctionBuilder) ToJSON() ([]byte, error) {
	return json.MarshalIndent(toWireFunction(fb), "", "  ")
}

// ToYAML renders fb the same way as ToJSON, for human-readable debug
// dumps (e.g. a `-dump-bytecode` CLI flag), grounded on the teacher's own
// use of gopkg.in/yaml.v3 for operator-facing config/debug output.
func (fb *FunctionBuilder) ToYAML() ([]byte, error) {
	return yaml.Marshal(toWireFunction(fb))
}
