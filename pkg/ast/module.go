package ast

// Well-known method targets in addition to constructor names.
const (
	// TargetModule attaches a method to the module's associated type.
	TargetModule = ""
	TargetAny      = "Any"
	TargetNumber   = "Number"
	TargetFunction = "Function"
	TargetError    = "Error"
)

// Source describes the origin of a tree, used in diagnostics.
type Source struct {
	Name string
	Code string
}

// Module is one compilation unit.
type Module struct {
	Name    string
	Source  Source
	Imports []string
	Types   []*TypeDef
	Methods []*MethodDef
}

// TypeDef declares a constructor.
type TypeDef struct {
	Meta
	Name   string
	Fields []*Param
}

// MethodDef defines a method on Target. The "this" parameter is added in front
// of Fn's parameters unless its first parameter is already named "this".
type MethodDef struct {
	Meta
	Target string
	Name   string
	Fn     *Lambda
}
