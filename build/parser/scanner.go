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

package parser

import (
	"fmt"

	"github.com/gx-org/nn/build/ast"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIllegal
	tIdent
	tNumber
	tString
	tLBrack // [
	tRBrack // ]
	tLParen // (
	tRParen // )
	tLBrace // {
	tRBrace // }
	tComma  // ,
	tColon  // :
	tAssign // =
	tPipe   // |>
	tAdd    // +
	tSub    // -
	tMul    // *
	tQuo    // /
	tPow    // ^
)

var tokenStrings = [...]string{
	tEOF:     "end of file",
	tIllegal: "illegal character",
	tIdent:   "identifier",
	tNumber:  "number",
	tString:  "string",
	tLBrack:  "'['",
	tRBrack:  "']'",
	tLParen:  "'('",
	tRParen:  "')'",
	tLBrace:  "'{'",
	tRBrace:  "'}'",
	tComma:   "','",
	tColon:   "':'",
	tAssign:  "'='",
	tPipe:    "'|>'",
	tAdd:     "'+'",
	tSub:     "'-'",
	tMul:     "'*'",
	tQuo:     "'/'",
	tPow:     "'^'",
}

func (k tokenKind) String() string {
	if int(k) < len(tokenStrings) {
		return tokenStrings[k]
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	pos  ast.Position
	// bol is true if the token is the first character of its line.
	bol bool
	// comments preceding the token.
	comments []string
}

type scanner struct {
	src []byte
	off int
	// lineStart is true when only blank characters have been read on the current line.
	lineStart bool
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, lineStart: true}
}

func isLetter(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (s *scanner) skipBlanks() (comments []string, bol bool) {
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case c == '\n':
			s.lineStart = true
			s.off++
		case c == ' ' || c == '\t' || c == '\r':
			s.off++
		case c == '#':
			start := s.off + 1
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.off++
			}
			comments = append(comments, trimComment(string(s.src[start:s.off])))
		default:
			bol = s.lineStart && (s.off == 0 || s.src[s.off-1] == '\n')
			return
		}
	}
	return
}

func trimComment(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (s *scanner) next() token {
	comments, bol := s.skipBlanks()
	s.lineStart = false
	tok := token{bol: bol, comments: comments}
	start := s.off
	if s.off >= len(s.src) {
		tok.kind = tEOF
		tok.pos = ast.Position{Pos: start, End: start}
		return tok
	}
	c := s.src[s.off]
	s.off++
	switch {
	case isLetter(c):
		for s.off < len(s.src) && (isLetter(s.src[s.off]) || isDigit(s.src[s.off])) {
			s.off++
		}
		tok.kind = tIdent
	case isDigit(c):
		for s.off < len(s.src) && isDigit(s.src[s.off]) {
			s.off++
		}
		if s.off+1 < len(s.src) && s.src[s.off] == '.' && isDigit(s.src[s.off+1]) {
			s.off++
			for s.off < len(s.src) && isDigit(s.src[s.off]) {
				s.off++
			}
		}
		tok.kind = tNumber
	case c == '\'' || c == '"':
		for s.off < len(s.src) && s.src[s.off] != c && s.src[s.off] != '\n' {
			s.off++
		}
		if s.off < len(s.src) && s.src[s.off] == c {
			s.off++
			tok.kind = tString
		} else {
			tok.kind = tIllegal
		}
	case c == '|' && s.off < len(s.src) && s.src[s.off] == '>':
		s.off++
		tok.kind = tPipe
	default:
		tok.kind = punctuation(c)
	}
	tok.text = string(s.src[start:s.off])
	tok.pos = ast.Position{Pos: start, End: s.off}
	return tok
}

func punctuation(c byte) tokenKind {
	switch c {
	case '[':
		return tLBrack
	case ']':
		return tRBrack
	case '(':
		return tLParen
	case ')':
		return tRParen
	case '{':
		return tLBrace
	case '}':
		return tRBrace
	case ',':
		return tComma
	case ':':
		return tColon
	case '=':
		return tAssign
	case '+':
		return tAdd
	case '-':
		return tSub
	case '*':
		return tMul
	case '/':
		return tQuo
	case '^':
		return tPow
	default:
		return tIllegal
	}
}
