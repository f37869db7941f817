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

// Package parser implements a parser for nn source files.
//
// The checker only consumes the tree built by this package. Any other
// front end producing an ast.File in the same arena can replace it.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/ast"
)

// errBail aborts the parsing of the current declaration.
var errBail = errors.New("bail")

type parser struct {
	arena *ast.Arena
	scan  *scanner
	tok   token
	peek  *token
	errs  ErrorList
}

// ParseFile parses the source of a file. It always returns a file,
// possibly incomplete, together with the syntax errors encountered.
func ParseFile(arena *ast.Arena, path string, src []byte) (*ast.File, ErrorList) {
	p := &parser{
		arena: arena,
		scan:  newScanner(src),
	}
	p.next()
	file := arena.NewFile(path, src)
	for p.tok.kind != tEOF {
		p.topLevel(file)
	}
	p.errs.sort()
	return file, p.errs
}

func (p *parser) next() {
	if p.peek != nil {
		p.tok = *p.peek
		p.peek = nil
		return
	}
	p.tok = p.scan.next()
}

func (p *parser) lookahead() token {
	if p.peek == nil {
		tok := p.scan.next()
		p.peek = &tok
	}
	return *p.peek
}

func (p *parser) errorf(pos ast.Position, format string, a ...any) {
	p.errs = append(p.errs, &Error{Pos: pos, Msg: fmt.Sprintf(format, a...)})
}

func (p *parser) unexpected(want string) error {
	if p.tok.kind == tIllegal {
		p.errorf(p.tok.pos, "unexpected token '%s'", p.tok.text)
	} else {
		p.errorf(p.tok.pos, "unexpected %s, expected %s", p.describe(), want)
	}
	return errBail
}

func (p *parser) describe() string {
	switch p.tok.kind {
	case tIdent, tNumber, tString:
		return p.tok.kind.String() + " '" + p.tok.text + "'"
	}
	return p.tok.kind.String()
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return tok, p.unexpected(kind.String())
	}
	p.next()
	return tok, nil
}

func (p *parser) got(kind tokenKind) bool {
	if p.tok.kind != kind {
		return false
	}
	p.next()
	return true
}

// sync skips tokens until the start of the next top-level statement
// after offset start: an identifier at the beginning of a line.
func (p *parser) sync(start int) {
	for p.tok.kind != tEOF {
		if p.tok.kind == tIdent && p.tok.bol && p.tok.pos.Pos > start {
			return
		}
		p.next()
	}
}

func (p *parser) topLevel(file *ast.File) {
	start := p.tok.pos.Pos
	var err error
	if p.tok.kind == tIdent && p.tok.text == "import" && p.lookahead().kind == tLBrace {
		var imp *ast.Import
		imp, err = p.importClause()
		if imp != nil {
			file.Imports = append(file.Imports, imp)
		}
	} else {
		var decl *ast.Declaration
		decl, err = p.declaration()
		if decl != nil {
			file.Decls = append(file.Decls, decl)
		}
	}
	if err != nil {
		p.sync(start)
	}
}

func (p *parser) ident() (*ast.Ident, error) {
	tok, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	return ast.Add(p.arena, tok.pos, &ast.Ident{Name: tok.text}), nil
}

func (p *parser) stringLit() (*ast.StringLit, error) {
	tok, err := p.expect(tString)
	if err != nil {
		return nil, err
	}
	return ast.Add(p.arena, tok.pos, &ast.StringLit{Value: tok.text[1 : len(tok.text)-1]}), nil
}

// list parses a separated list with an optional trailing separator.
// The opening token has already been consumed.
func list[T any](p *parser, closing tokenKind, allowEmpty bool, item func() (T, error)) ([]T, ast.Position, error) {
	var items []T
	for {
		if p.tok.kind == closing && (allowEmpty || len(items) > 0) {
			break
		}
		it, err := item()
		if err != nil {
			return items, ast.Position{}, err
		}
		items = append(items, it)
		if !p.got(tComma) {
			break
		}
	}
	end, err := p.expect(closing)
	return items, end.pos, err
}

func (p *parser) importClause() (*ast.Import, error) {
	start := p.tok.pos
	p.next() // import
	p.next() // {
	names, _, err := list(p, tRBrace, true, p.ident)
	if err != nil {
		return nil, err
	}
	from, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	if from.text != "from" {
		p.errorf(from.pos, "unexpected identifier '%s', expected 'from'", from.text)
		return nil, errBail
	}
	target, err := p.stringLit()
	if err != nil {
		return nil, err
	}
	return ast.Add(p.arena, ast.Join(start, target.Span()), &ast.Import{
		Names:  names,
		Target: target,
	}), nil
}

func (p *parser) declaration() (*ast.Declaration, error) {
	comments := p.tok.comments
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	decl := &ast.Declaration{Name: name, Comments: comments}
	end := name.Span()
	if p.got(tLBrack) {
		if decl.SizeParams, end, err = list(p, tRBrack, false, p.ident); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	if decl.Args, end, err = list(p, tRParen, true, p.argument); err != nil {
		return nil, err
	}
	if p.got(tColon) {
		if decl.Return, err = p.typeNode(); err != nil {
			return nil, err
		}
		end = decl.Return.Span()
	}
	if p.got(tAssign) {
		decl.FirstPipe = p.got(tPipe)
		for {
			expr, err := p.expr()
			if err != nil {
				return nil, err
			}
			decl.Pipeline = append(decl.Pipeline, expr)
			end = expr.Span()
			if !p.got(tPipe) {
				break
			}
		}
	}
	return ast.Add(p.arena, ast.Join(name.Span(), end), decl), nil
}

func (p *parser) argument() (*ast.Argument, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon); err != nil {
		return nil, err
	}
	tp, err := p.typeNode()
	if err != nil {
		return nil, err
	}
	return ast.Add(p.arena, ast.Join(name.Span(), tp.Span()), &ast.Argument{Name: name, Type: tp}), nil
}

func (p *parser) typeNode() (*ast.TypeNode, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	tp := &ast.TypeNode{Name: name}
	span := name.Span()
	if p.got(tLBrack) {
		var end ast.Position
		if tp.Sizes, end, err = list(p, tRBrack, false, p.size); err != nil {
			return nil, err
		}
		span = ast.Join(span, end)
	}
	return ast.Add(p.arena, span, tp), nil
}

func (p *parser) expr() (ast.Expr, error) {
	if p.tok.kind == tIdent && p.lookahead().kind == tAssign {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		p.next() // =
		value, err := p.plain()
		if err != nil {
			return nil, err
		}
		return ast.Add(p.arena, ast.Join(name.Span(), value.Span()), &ast.AssignExpr{Name: name, Value: value}), nil
	}
	first, err := p.plain()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tComma {
		return first, nil
	}
	elts := []ast.PlainExpr{first}
	for p.got(tComma) {
		elt, err := p.plain()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	span := ast.Join(first.Span(), elts[len(elts)-1].Span())
	return ast.Add(p.arena, span, &ast.TupleExpr{Elts: elts}), nil
}

func (p *parser) plain() (ast.PlainExpr, error) {
	switch p.tok.kind {
	case tString:
		return p.stringLit()
	case tIdent:
		next := p.lookahead().kind
		if next == tLBrack || next == tLParen {
			return p.call()
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.Add(p.arena, name.Span(), &ast.IdentExpr{Name: name}), nil
	}
	return nil, p.unexpected("expression")
}

func (p *parser) call() (*ast.CallExpr, error) {
	callee, err := p.ident()
	if err != nil {
		return nil, err
	}
	call := &ast.CallExpr{Callee: callee}
	if p.got(tLBrack) {
		if call.Sizes, _, err = list(p, tRBrack, true, p.size); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	var end ast.Position
	if call.Args, end, err = list(p, tRParen, true, p.plain); err != nil {
		return nil, err
	}
	return ast.Add(p.arena, ast.Join(callee.Span(), end), call), nil
}

var sizeOps = map[tokenKind]ast.SizeOp{
	tAdd: ast.SizeAdd,
	tSub: ast.SizeSub,
	tMul: ast.SizeMul,
	tQuo: ast.SizeDiv,
	tPow: ast.SizePow,
}

func (p *parser) size() (ast.SizeExpr, error) {
	return p.binarySize(1)
}

// binarySize parses a size expression with operators of precedence at least minPrec.
func (p *parser) binarySize(minPrec int) (ast.SizeExpr, error) {
	x, err := p.unarySize()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := sizeOps[p.tok.kind]
		if !ok || op.Precedence() < minPrec {
			return x, nil
		}
		p.next()
		next := op.Precedence() + 1
		if op == ast.SizePow {
			// Right associative.
			next = op.Precedence()
		}
		y, err := p.binarySize(next)
		if err != nil {
			return nil, err
		}
		x = ast.Add(p.arena, ast.Join(x.Span(), y.Span()), &ast.BinarySize{Op: op, X: x, Y: y})
	}
}

func (p *parser) unarySize() (ast.SizeExpr, error) {
	switch p.tok.kind {
	case tSub:
		start := p.tok.pos
		p.next()
		x, err := p.unarySize()
		if err != nil {
			return nil, err
		}
		zero := ast.Add(p.arena, ast.Position{Pos: start.Pos, End: start.Pos}, &ast.NumberSize{})
		return ast.Add(p.arena, ast.Join(start, x.Span()), &ast.BinarySize{Op: ast.SizeSub, X: zero, Y: x}), nil
	case tLParen:
		p.next()
		x, err := p.size()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return x, nil
	case tNumber:
		tok := p.tok
		p.next()
		if strings.Contains(tok.text, ".") {
			p.errorf(tok.pos, "size %s is not an integer", tok.text)
			return nil, errBail
		}
		val, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			p.errorf(tok.pos, "invalid size %s: %v", tok.text, err)
			return nil, errBail
		}
		return ast.Add(p.arena, tok.pos, &ast.NumberSize{Value: val}), nil
	case tIdent:
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return ast.Add(p.arena, name.Span(), &ast.IdentSize{Name: name}), nil
	}
	return nil, p.unexpected("size")
}
