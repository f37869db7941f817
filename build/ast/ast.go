// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ast declares the types used to represent the syntax tree of nn source files.
//
// Every node is registered in an Arena when created and receives a
// NodeID unique within the arena. The checker keys all of its side
// tables (vertices, edges, diagnostics) with NodeIDs instead of
// pointers.
package ast

type (
	// NodeID identifies a node within an arena.
	NodeID int32

	// Position is a byte range [Pos, End) in a source file.
	Position struct {
		Pos int
		End int
	}

	// Node is a node of the syntax tree.
	Node interface {
		// ID of the node in its arena.
		ID() NodeID
		// Span returns the byte range of the node in its file.
		Span() Position

		init(NodeID, Position)
	}

	// Expr is a pipeline expression.
	Expr interface {
		Node
		exprNode()
	}

	// SizeExpr is an expression defining a tensor dimension.
	SizeExpr interface {
		Node
		sizeNode()
	}

	// PlainExpr is an expression allowed as a call argument,
	// a tuple element, or the right-hand side of an assignment.
	PlainExpr interface {
		Expr
		plainNode()
	}

	base struct {
		id  NodeID
		pos Position
	}
)

// NoID is the identifier of nodes not registered in an arena.
const NoID NodeID = -1

func (n *base) ID() NodeID {
	return n.id
}

func (n *base) Span() Position {
	return n.pos
}

func (n *base) init(id NodeID, pos Position) {
	n.id = id
	n.pos = pos
}

// Contains returns true if offset is in the range of the position.
func (p Position) Contains(offset int) bool {
	return offset >= p.Pos && offset <= p.End
}

// Len returns the number of bytes covered by the position.
func (p Position) Len() int {
	return p.End - p.Pos
}

// Join returns the smallest position covering both positions.
func Join(a, b Position) Position {
	return Position{Pos: min(a.Pos, b.Pos), End: max(a.End, b.End)}
}

type (
	// Ident is an identifier.
	Ident struct {
		base
		Name string
	}

	// Import is a clause `import { a, b } from "path"`.
	Import struct {
		base
		Names  []*Ident
		Target *StringLit
	}

	// Declaration declares a flow.
	Declaration struct {
		base
		Name       *Ident
		SizeParams []*Ident
		Args       []*Argument
		// Return is nil when the flow declares no return type.
		Return *TypeNode
		// FirstPipe is true when the pipeline starts with `|>`,
		// in which case the arguments of the flow are piped into the first stage.
		FirstPipe bool
		// Pipeline is empty for opaque flows declared without a body.
		Pipeline []Expr
		Comments []string
	}

	// Argument is a typed argument of a declaration.
	Argument struct {
		base
		Name *Ident
		Type *TypeNode
	}

	// TypeNode is a tensor type such as Tensor[N, 3].
	TypeNode struct {
		base
		Name  *Ident
		Sizes []SizeExpr
	}
)

// HasBody returns true if the declaration has a pipeline.
func (d *Declaration) HasBody() bool {
	return len(d.Pipeline) > 0
}

// SizeOp is an arithmetic operator in a size expression.
type SizeOp int

// Size operators.
const (
	SizeAdd SizeOp = iota
	SizeSub
	SizeMul
	SizeDiv
	SizePow
)

var sizeOpStrings = [...]string{
	SizeAdd: "+",
	SizeSub: "-",
	SizeMul: "*",
	SizeDiv: "/",
	SizePow: "^",
}

func (op SizeOp) String() string {
	if int(op) < len(sizeOpStrings) {
		return sizeOpStrings[op]
	}
	return "?"
}

// Precedence of the operator. Higher binds tighter.
func (op SizeOp) Precedence() int {
	switch op {
	case SizePow:
		return 3
	case SizeMul, SizeDiv:
		return 2
	default:
		return 1
	}
}

type (
	// NumberSize is a literal dimension.
	NumberSize struct {
		base
		Value int64
	}

	// IdentSize is a dimension referring to a size variable.
	IdentSize struct {
		base
		Name *Ident
	}

	// BinarySize is an arithmetic operation between two sizes.
	BinarySize struct {
		base
		Op   SizeOp
		X, Y SizeExpr
	}
)

func (*NumberSize) sizeNode() {}
func (*IdentSize) sizeNode()  {}
func (*BinarySize) sizeNode() {}

type (
	// CallExpr applies a flow: Callee[Sizes](Args).
	CallExpr struct {
		base
		Callee *Ident
		Sizes  []SizeExpr
		Args   []PlainExpr
	}

	// TupleExpr groups values: a, b.
	TupleExpr struct {
		base
		Elts []PlainExpr
	}

	// AssignExpr binds a name to a value: y = F(x).
	AssignExpr struct {
		base
		Name  *Ident
		Value PlainExpr
	}

	// IdentExpr refers to a value.
	IdentExpr struct {
		base
		Name *Ident
	}

	// StringLit is a string literal. Value is unquoted.
	StringLit struct {
		base
		Value string
	}
)

func (*CallExpr) exprNode()   {}
func (*TupleExpr) exprNode()  {}
func (*AssignExpr) exprNode() {}
func (*IdentExpr) exprNode()  {}
func (*StringLit) exprNode()  {}

func (*CallExpr) plainNode()  {}
func (*IdentExpr) plainNode() {}
func (*StringLit) plainNode() {}
