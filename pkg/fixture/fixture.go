// Package fixture decodes expression and module trees written in YAML.
//
// It is not a parser for a source language; it lets tests and the strand
// command describe resolved trees compactly. Expressions are written as
// follows:
//
//	1, -2, 0x10        number
//	1.5                decimal
//	"text", 'text'     text (quoted scalars)
//	name               variable, or constructor
//	here               the atom of the current module
//	[f, a, {x: b}, _]  application; maps are named arguments, _ is a placeholder
//	{lambda: [x, {y: 10}, ~z], body: e}
//	{.name: [recv, a, {x: b}]}
//	{do: [e1, e2]}     block; the value is the value of the last expression
//	{let: {x: e}}      assignment
//	{case: e, of: [[Cons, h1], [Nil, h2]], else: h3}
//
// A parameter written with a leading "~", like ~z above, is suspended. Any map
// form may also carry an "id" key with a UUID; other nodes get a UUID
// derived from the source name and the position of the node.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/diag"
)

const parseErrorType = "parse error"

// ParseExpr decodes a single expression.
func ParseExpr(src ast.Source) (ast.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src.Code), &root); err != nil {
		return nil, &diag.Error{Type: parseErrorType, Message: err.Error(),
			Context: *diag.NewContext(src.Name, src.Code, diag.NoRanging)}
	}
	if len(root.Content) == 0 {
		return nil, &diag.Error{Type: parseErrorType, Message: "empty document",
			Context: *diag.NewContext(src.Name, src.Code, diag.NoRanging)}
	}
	d := newDecoder(src)
	return d.decode(func() ast.Node { return d.expr(root.Content[0]) })
}

// ParseModules decodes a stream of module documents.
func ParseModules(src ast.Source) ([]*ast.Module, error) {
	dec := yaml.NewDecoder(strings.NewReader(src.Code))
	var mods []*ast.Module
	for {
		var root yaml.Node
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, &diag.Error{Type: parseErrorType, Message: err.Error(),
				Context: *diag.NewContext(src.Name, src.Code, diag.NoRanging)}
		}
		if len(root.Content) == 0 {
			continue
		}
		d := newDecoder(src)
		var mod *ast.Module
		_, err = d.decode(func() ast.Node {
			mod = d.module(root.Content[0])
			return nil
		})
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

type decoder struct {
	src        ast.Source
	lineStarts []int
}

func newDecoder(src ast.Source) *decoder {
	starts := []int{0}
	for i := 0; i < len(src.Code); i++ {
		if src.Code[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &decoder{src, starts}
}

// Runs f, turning the *diag.Error panics of errorf into an error return.
func (d *decoder) decode(f func() ast.Node) (n ast.Node, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(*diag.Error); ok && e.Type == parseErrorType {
			err = e
			return
		}
		panic(r)
	}()
	return f(), nil
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) {
	panic(&diag.Error{
		Type:    parseErrorType,
		Message: fmt.Sprintf(format, args...),
		Context: *diag.NewContext(d.src.Name, d.src.Code, d.ranging(n))})
}

func (d *decoder) offset(n *yaml.Node) int {
	if n.Line < 1 || n.Line > len(d.lineStarts) {
		return 0
	}
	off := d.lineStarts[n.Line-1] + n.Column - 1
	if off > len(d.src.Code) {
		return len(d.src.Code)
	}
	return off
}

// Computes the range of a node. Scalars span their value; collections span
// up to the end of their last child.
func (d *decoder) ranging(n *yaml.Node) diag.Ranging {
	from := d.offset(n)
	to := from
	switch n.Kind {
	case yaml.ScalarNode:
		to = from + len(n.Value)
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			to += 2
		}
	case yaml.SequenceNode, yaml.MappingNode:
		for _, c := range n.Content {
			if r := d.ranging(c); r.To > to {
				to = r.To
			}
		}
		if n.Style&yaml.FlowStyle != 0 {
			to++
		}
	}
	if to > len(d.src.Code) {
		to = len(d.src.Code)
	}
	return diag.Ranging{From: from, To: to}
}

func (d *decoder) meta(n *yaml.Node, id uuid.UUID) ast.Meta {
	r := d.ranging(n)
	if id == uuid.Nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL,
			[]byte(fmt.Sprintf("strand:%s:%d:%d", d.src.Name, r.From, n.Kind)))
	}
	return ast.Meta{ID: id, Ranging: r}
}

func isQuoted(n *yaml.Node) bool {
	return n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0
}

func (d *decoder) expr(n *yaml.Node) ast.Node {
	switch n.Kind {
	case yaml.AliasNode:
		return d.expr(n.Alias)
	case yaml.ScalarNode:
		return d.scalar(n)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			d.errorf(n, "empty application")
		}
		return &ast.Apply{
			Meta: d.meta(n, uuid.Nil),
			Fn:   d.expr(n.Content[0]),
			Args: d.args(n.Content[1:])}
	case yaml.MappingNode:
		return d.form(n)
	}
	d.errorf(n, "unexpected YAML node")
	return nil
}

func (d *decoder) scalar(n *yaml.Node) ast.Node {
	m := d.meta(n, uuid.Nil)
	if isQuoted(n) {
		return &ast.Text{Meta: m, Value: n.Value}
	}
	switch n.ShortTag() {
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			d.errorf(n, "bad number %s: %v", n.Value, err)
		}
		return &ast.Number{Meta: m, Value: v}
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			d.errorf(n, "bad decimal %s: %v", n.Value, err)
		}
		return &ast.Decimal{Meta: m, Value: v}
	case "!!str", "!!bool":
		// True and False are constructor names.
		if n.Value == "here" {
			return &ast.Here{Meta: m}
		}
		if n.Value == "_" {
			d.errorf(n, "placeholder outside of arguments")
		}
		return &ast.Var{Meta: m, Name: n.Value}
	}
	d.errorf(n, "unsupported scalar %s", n.Value)
	return nil
}

func (d *decoder) args(ns []*yaml.Node) []*ast.Arg {
	var args []*ast.Arg
	for _, n := range ns {
		switch {
		case n.Kind == yaml.ScalarNode && !isQuoted(n) && n.Value == "_":
			args = append(args, &ast.Arg{Ignore: true})
		case n.Kind == yaml.MappingNode && !isForm(n):
			for i := 0; i+1 < len(n.Content); i += 2 {
				name, v := n.Content[i].Value, n.Content[i+1]
				if v.Kind == yaml.ScalarNode && !isQuoted(v) && v.Value == "_" {
					args = append(args, &ast.Arg{Name: name, Ignore: true})
				} else {
					args = append(args, &ast.Arg{Name: name, Value: d.expr(v)})
				}
			}
		default:
			args = append(args, &ast.Arg{Value: d.expr(n)})
		}
	}
	return args
}

var formKeys = map[string]bool{
	"lambda": true, "do": true, "let": true, "case": true}

// Reports whether a mapping is an expression form rather than a set of named
// arguments.
func isForm(n *yaml.Node) bool {
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if formKeys[k] || strings.HasPrefix(k, ".") {
			return true
		}
	}
	return false
}

// Returns the fields of a mapping node, reporting unknown or duplicate keys.
func (d *decoder) fields(n *yaml.Node, allowed ...string) map[string]*yaml.Node {
	fields := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, dup := fields[k]; dup {
			d.errorf(n.Content[i], "duplicate key %s", k)
		}
		fields[k] = n.Content[i+1]
	}
	for k := range fields {
		if !contains(allowed, k) {
			sort.Strings(allowed)
			d.errorf(n, "unknown key %s, want one of %s", k, strings.Join(allowed, ", "))
		}
	}
	return fields
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (d *decoder) id(fields map[string]*yaml.Node) uuid.UUID {
	idNode, ok := fields["id"]
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(idNode.Value)
	if err != nil {
		d.errorf(idNode, "bad id: %v", err)
	}
	return id
}

func (d *decoder) form(n *yaml.Node) ast.Node {
	var method string
	for i := 0; i < len(n.Content); i += 2 {
		if k := n.Content[i].Value; strings.HasPrefix(k, ".") {
			method = k
		}
	}
	switch {
	case method != "":
		fields := d.fields(n, method, "id")
		operands := fields[method]
		if operands.Kind != yaml.SequenceNode || len(operands.Content) == 0 {
			d.errorf(operands, "method call needs a receiver")
		}
		return &ast.Method{
			Meta:     d.meta(n, d.id(fields)),
			Name:     method[1:],
			Receiver: d.expr(operands.Content[0]),
			Args:     d.args(operands.Content[1:])}
	case hasKey(n, "lambda"):
		fields := d.fields(n, "lambda", "body", "id")
		body, ok := fields["body"]
		if !ok {
			d.errorf(n, "lambda without body")
		}
		return &ast.Lambda{
			Meta:   d.meta(n, d.id(fields)),
			Params: d.params(fields["lambda"]),
			Body:   d.expr(body)}
	case hasKey(n, "do"):
		fields := d.fields(n, "do", "id")
		seq := fields["do"]
		if seq.Kind != yaml.SequenceNode {
			d.errorf(seq, "do needs a sequence")
		}
		exprs := make([]ast.Node, len(seq.Content))
		for i, e := range seq.Content {
			exprs[i] = d.expr(e)
		}
		return &ast.Block{Meta: d.meta(n, d.id(fields)), Exprs: exprs}
	case hasKey(n, "let"):
		fields := d.fields(n, "let", "id")
		binding := fields["let"]
		if binding.Kind != yaml.MappingNode || len(binding.Content) != 2 {
			d.errorf(binding, "let needs a single name: value pair")
		}
		return &ast.Assign{
			Meta:  d.meta(n, d.id(fields)),
			Name:  binding.Content[0].Value,
			Value: d.expr(binding.Content[1])}
	case hasKey(n, "case"):
		fields := d.fields(n, "case", "of", "else", "id")
		c := &ast.Case{Meta: d.meta(n, d.id(fields)), Target: d.expr(fields["case"])}
		if of, ok := fields["of"]; ok {
			for _, b := range of.Content {
				if b.Kind != yaml.SequenceNode || len(b.Content) != 2 {
					d.errorf(b, "branch needs a pattern and a handler")
				}
				c.Branches = append(c.Branches, &ast.Branch{
					Pattern: d.expr(b.Content[0]), Handler: d.expr(b.Content[1])})
			}
		}
		if e, ok := fields["else"]; ok {
			c.Fallback = d.expr(e)
		}
		return c
	}
	d.errorf(n, "unknown form")
	return nil
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Decodes a parameter list. A parameter is a name, or a single-pair mapping
// from the name to the default expression.
func (d *decoder) params(n *yaml.Node) []*ast.Param {
	if n.Kind != yaml.SequenceNode {
		d.errorf(n, "parameters must be a sequence")
	}
	ps := make([]*ast.Param, len(n.Content))
	for i, p := range n.Content {
		switch {
		case p.Kind == yaml.ScalarNode:
			ps[i] = d.param(p)
		case p.Kind == yaml.MappingNode && len(p.Content) == 2:
			ps[i] = d.param(p.Content[0])
			ps[i].Default = d.expr(p.Content[1])
		default:
			d.errorf(p, "bad parameter")
		}
	}
	return ps
}

// Decodes a parameter name; a leading "~" marks a suspended parameter.
func (d *decoder) param(n *yaml.Node) *ast.Param {
	name, suspended := strings.CutPrefix(n.Value, "~")
	if name == "" {
		d.errorf(n, "bad parameter")
	}
	return &ast.Param{Name: name, Suspended: suspended}
}

// Decodes a module document:
//
//	module: Name
//	imports: [Other]
//	types:
//	  - Point: [x, {y: 0}]
//	methods:
//	  - main: {lambda: [], body: ...}
//	  - Point.norm: {lambda: [this], body: ...}
//
// A method value that is not a lambda becomes the body of a lambda that only
// takes the receiver.
func (d *decoder) module(n *yaml.Node) *ast.Module {
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "module must be a mapping")
	}
	fields := d.fields(n, "module", "imports", "types", "methods")
	nameNode, ok := fields["module"]
	if !ok {
		d.errorf(n, "module without name")
	}
	mod := &ast.Module{Name: nameNode.Value, Source: d.src}
	if imports, ok := fields["imports"]; ok {
		if err := imports.Decode(&mod.Imports); err != nil {
			d.errorf(imports, "bad imports: %v", err)
		}
	}
	for _, t := range entries(fields["types"]) {
		mod.Types = append(mod.Types, &ast.TypeDef{
			Meta:   d.meta(t.key, uuid.Nil),
			Name:   t.key.Value,
			Fields: d.params(t.value)})
	}
	for _, m := range entries(fields["methods"]) {
		target, name := ast.TargetModule, m.key.Value
		if i := strings.IndexByte(name, '.'); i > 0 {
			target, name = name[:i], name[i+1:]
		}
		e := d.expr(m.value)
		fn, ok := e.(*ast.Lambda)
		if !ok {
			fn = &ast.Lambda{Meta: ast.Meta{Ranging: e.Range()}, Body: e}
		}
		mod.Methods = append(mod.Methods, &ast.MethodDef{
			Meta:   d.meta(m.key, uuid.Nil),
			Target: target, Name: name, Fn: fn})
	}
	return mod
}

type entry struct{ key, value *yaml.Node }

// Returns the pairs of a sequence of single-pair mappings.
func entries(n *yaml.Node) []entry {
	if n == nil {
		return nil
	}
	var es []entry
	for _, item := range n.Content {
		for i := 0; i+1 < len(item.Content); i += 2 {
			es = append(es, entry{item.Content[i], item.Content[i+1]})
		}
	}
	return es
}
