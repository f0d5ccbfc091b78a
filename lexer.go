// Copyright 2011 Google Inc. All Rights Reserved.
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

package anvil

import (
	"fmt"
	"strings"
)

// Token identifies a lexical element of a build manifest.
type Token int32

const (
	ERROR Token = iota
	BUILD
	COLON
	DEFAULT
	EQUALS
	IDENT
	INCLUDE
	INDENT
	NEWLINE
	PIPE
	PIPE2
	PIPEAT
	POOL
	RULE
	SUBNINJA
	TEOF
)

// String returns a human-readable form of a token, used in error messages.
func (t Token) String() string {
	switch t {
	case ERROR:
		return "lexing error"
	case BUILD:
		return "'build'"
	case COLON:
		return "':'"
	case DEFAULT:
		return "'default'"
	case EQUALS:
		return "'='"
	case IDENT:
		return "identifier"
	case INCLUDE:
		return "'include'"
	case INDENT:
		return "indent"
	case NEWLINE:
		return "newline"
	case PIPE2:
		return "'||'"
	case PIPE:
		return "'|'"
	case PIPEAT:
		return "'|@'"
	case POOL:
		return "'pool'"
	case RULE:
		return "'rule'"
	case SUBNINJA:
		return "'subninja'"
	case TEOF:
		return "eof"
	}
	return ""
}

// errorHint returns a human-readable token hint, used in error messages.
func (t Token) errorHint() string {
	if t == COLON {
		return " ($ also escapes ':')"
	}
	return ""
}

// lexerState is the offset of processing a token.
//
// It is meant to be saved when an error message may be printed after the
// parsing continued.
type lexerState struct {
	ofs       int
	lastToken int
}

// error constructs an error message with context.
func (l *lexerState) error(message, filename string, input []byte) error {
	line := 1
	lineStart := 0
	for p := 0; p < l.lastToken; p++ {
		if input[p] == '\n' {
			line++
			lineStart = p + 1
		}
	}
	col := 0
	if l.lastToken != -1 {
		col = l.lastToken - lineStart
	}

	c := ""
	const truncateColumn = 72
	if col > 0 && col < truncateColumn {
		truncated := true
		length := 0
		for ; length < truncateColumn; length++ {
			if input[lineStart+length] == 0 || input[lineStart+length] == '\n' {
				truncated = false
				break
			}
		}
		c = unsafeString(input[lineStart : lineStart+length])
		if truncated {
			c += "..."
		}
		c += "\n"
		c += strings.Repeat(" ", col)
		c += "^ near here"
	}
	return fmt.Errorf("%s:%d: %s\n%s", filename, line, message, c)
}

// lexer tokenizes a build manifest's raw bytes.
type lexer struct {
	filename string
	input    []byte

	lexerState
}

// Error constructs an error message with context.
func (l *lexer) Error(message string) error {
	return l.lexerState.error(message, l.filename, l.input)
}

// Start begins parsing some input. input must end with a trailing NUL byte.
func (l *lexer) Start(filename string, input []byte) {
	l.filename = filename
	if input[len(input)-1] != 0 {
		panic("requires trailing 0 byte")
	}
	l.input = input
	l.ofs = 0
	l.lastToken = -1
}

// DescribeLastError returns more detail about the last ERROR token read, or
// a generic message.
func (l *lexer) DescribeLastError() string {
	if l.lastToken != -1 {
		switch l.input[l.lastToken] {
		case '\t':
			return "tabs are not allowed, use spaces"
		}
	}
	return "lexing error"
}

// UnreadToken rewinds to the last read token.
func (l *lexer) UnreadToken() {
	l.ofs = l.lastToken
}

func isVarnameByte(c byte, allowDot bool) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
		return true
	}
	return allowDot && c == '.'
}

// ReadToken scans and returns the next token, advancing past it.
func (l *lexer) ReadToken() Token {
	input := l.input
	pos := l.ofs
	var token Token
	var start int
	for {
		start = pos

		// Skip comment lines: zero or more spaces, '#', rest of line, '\n'.
		spaces := 0
		for pos+spaces < len(input) && input[pos+spaces] == ' ' {
			spaces++
		}
		p2 := pos + spaces
		if p2 < len(input) && input[p2] == '#' {
			p3 := p2 + 1
			for p3 < len(input) && input[p3] != 0 && input[p3] != '\n' {
				p3++
			}
			if p3 < len(input) && input[p3] == '\n' {
				pos = p3 + 1
				continue
			}
		}

		if p2+1 < len(input) && input[p2] == '\r' && input[p2+1] == '\n' {
			pos = p2 + 2
			token = NEWLINE
			break
		}
		if p2 < len(input) && input[p2] == '\n' {
			pos = p2 + 1
			token = NEWLINE
			break
		}
		if spaces > 0 {
			pos = p2
			token = INDENT
			break
		}

		c := input[pos]
		switch {
		case c == 0:
			token = TEOF
		case isVarnameByte(c, true):
			runEnd := pos
			for runEnd < len(input) && isVarnameByte(input[runEnd], true) {
				runEnd++
			}
			word := unsafeString(input[pos:runEnd])
			pos = runEnd
			switch word {
			case "build":
				token = BUILD
			case "pool":
				token = POOL
			case "rule":
				token = RULE
			case "default":
				token = DEFAULT
			case "include":
				token = INCLUDE
			case "subninja":
				token = SUBNINJA
			default:
				token = IDENT
			}
		case c == '=':
			pos++
			token = EQUALS
		case c == ':':
			pos++
			token = COLON
		case c == '|':
			if pos+1 < len(input) && input[pos+1] == '@' {
				pos += 2
				token = PIPEAT
			} else if pos+1 < len(input) && input[pos+1] == '|' {
				pos += 2
				token = PIPE2
			} else {
				pos++
				token = PIPE
			}
		default:
			pos++
			token = ERROR
		}
		break
	}

	l.lastToken = start
	l.ofs = pos
	if token != NEWLINE && token != TEOF {
		l.eatWhitespace()
	}
	return token
}

// PeekToken reads the next token and, if it matches token, consumes it.
func (l *lexer) PeekToken(token Token) bool {
	t := l.ReadToken()
	if t == token {
		return true
	}
	l.UnreadToken()
	return false
}

// eatWhitespace skips past whitespace and $-continued line breaks.
func (l *lexer) eatWhitespace() {
	input := l.input
	p := l.ofs
	for {
		if p < len(input) && input[p] == ' ' {
			p++
			continue
		}
		if p+2 < len(input) && input[p] == '$' && input[p+1] == '\r' && input[p+2] == '\n' {
			p += 3
			continue
		}
		if p+1 < len(input) && input[p] == '$' && input[p+1] == '\n' {
			p += 2
			continue
		}
		break
	}
	l.ofs = p
}

// readIdent reads a simple identifier (a rule or variable name). Returns ""
// if a name can't be read.
func (l *lexer) readIdent() string {
	input := l.input
	start := l.ofs
	end := start
	for end < len(input) && isVarnameByte(input[end], true) {
		end++
	}
	if end == start {
		l.lastToken = start
		return ""
	}
	out := unsafeString(input[start:end])
	l.lastToken = start
	l.ofs = end
	l.eatWhitespace()
	return out
}

// readEvalString reads a $-escaped string.
//
// If path is true, read a path (complete with $escapes), stopping at the
// first unescaped space, colon, pipe or newline without consuming it.
//
// If path is false, read the value side of a var = value line (complete
// with $escapes), consuming through the terminating newline.
//
// The returned EvalString may be empty if a delimiter is hit immediately.
func (l *lexer) readEvalString(path bool) (EvalString, error) {
	input := l.input
	var eval EvalString
	pos := l.ofs
	start := pos
loop:
	for {
		start = pos
		if pos >= len(input) || input[pos] == 0 {
			l.lastToken = start
			return EvalString{}, l.Error("unexpected EOF")
		}
		c := input[pos]
		switch {
		case c == '\r' && pos+1 < len(input) && input[pos+1] == '\n':
			pos += 2
			if path {
				pos = start
			}
			break loop
		case c == ' ' || c == ':' || c == '|' || c == '\n':
			pos++
			if path {
				pos = start
				break loop
			}
			if c == '\n' {
				break loop
			}
			eval.AddText(string(c))
		case c == '$':
			if pos+1 >= len(input) {
				l.lastToken = start
				return EvalString{}, l.Error("bad $-escape (literal $ must be written as $$)")
			}
			next := input[pos+1]
			switch {
			case next == '$':
				eval.AddText("$")
				pos += 2
			case next == ' ':
				eval.AddText(" ")
				pos += 2
			case next == '\r' && pos+2 < len(input) && input[pos+2] == '\n':
				pos += 3
				for pos < len(input) && input[pos] == ' ' {
					pos++
				}
			case next == '\n':
				pos += 2
				for pos < len(input) && input[pos] == ' ' {
					pos++
				}
			case next == ':':
				eval.AddText(":")
				pos += 2
			case next == '{':
				end := pos + 2
				for end < len(input) && isVarnameByte(input[end], true) {
					end++
				}
				if end == pos+2 || end >= len(input) || input[end] != '}' {
					l.lastToken = start
					return EvalString{}, l.Error("bad $-escape (literal $ must be written as $$)")
				}
				eval.AddSpecial(unsafeString(input[pos+2 : end]))
				pos = end + 1
			case isVarnameByte(next, false):
				end := pos + 1
				for end < len(input) && isVarnameByte(input[end], false) {
					end++
				}
				eval.AddSpecial(unsafeString(input[pos+1 : end]))
				pos = end
			default:
				l.lastToken = start
				return EvalString{}, l.Error("bad $-escape (literal $ must be written as $$)")
			}
		default:
			end := pos
			for end < len(input) {
				d := input[end]
				if d == '$' || d == ' ' || d == ':' || d == '\r' || d == '\n' || d == '|' || d == 0 {
					break
				}
				end++
			}
			eval.AddText(unsafeString(input[pos:end]))
			pos = end
		}
	}

	l.lastToken = start
	l.ofs = pos
	if path {
		l.eatWhitespace()
	}
	return eval, nil
}
