// Package lexer tokenizes formula source. The scanner is a plain
// byte-at-a-time state machine over the input with one byte of
// lookahead.
package lexer

import (
	"strings"

	"github.com/sheetkit/sheetkit/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position (points to ch)
	readPosition int  // next reading position
	ch           byte // current char under examination

	// bracketDepth tracks structured-reference nesting so that the
	// interior of Table[...] is scanned as ITEM tokens instead of
	// operators.
	bracketDepth int
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	if l.bracketDepth > 0 && l.ch != 0 {
		if tok, ok := l.bracketToken(); ok {
			return tok
		}
	}

	pos := l.position
	var tok token.Token

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Offset: pos}
	case '+':
		tok = token.Token{Type: token.PLUS, Lit: "+", Offset: pos}
	case '-':
		tok = token.Token{Type: token.MINUS, Lit: "-", Offset: pos}
	case '*':
		tok = token.Token{Type: token.STAR, Lit: "*", Offset: pos}
	case '/':
		tok = token.Token{Type: token.SLASH, Lit: "/", Offset: pos}
	case '^':
		tok = token.Token{Type: token.CARET, Lit: "^", Offset: pos}
	case '&':
		tok = token.Token{Type: token.AMP, Lit: "&", Offset: pos}
	case '%':
		tok = token.Token{Type: token.PERCENT, Lit: "%", Offset: pos}
	case '=':
		tok = token.Token{Type: token.EQ, Lit: "=", Offset: pos}
	case '<':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = token.Token{Type: token.NE, Lit: "<>", Offset: pos}
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LE, Lit: "<=", Offset: pos}
		default:
			tok = token.Token{Type: token.LT, Lit: "<", Offset: pos}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Lit: ">=", Offset: pos}
		} else {
			tok = token.Token{Type: token.GT, Lit: ">", Offset: pos}
		}
	case '(':
		tok = token.Token{Type: token.LPAREN, Lit: "(", Offset: pos}
	case ')':
		tok = token.Token{Type: token.RPAREN, Lit: ")", Offset: pos}
	case '{':
		tok = token.Token{Type: token.LBRACE, Lit: "{", Offset: pos}
	case '}':
		tok = token.Token{Type: token.RBRACE, Lit: "}", Offset: pos}
	case '[':
		l.bracketDepth++
		tok = token.Token{Type: token.LBRACKET, Lit: "[", Offset: pos}
	case ']':
		if l.bracketDepth > 0 {
			l.bracketDepth--
		}
		tok = token.Token{Type: token.RBRACKET, Lit: "]", Offset: pos}
	case ',':
		tok = token.Token{Type: token.COMMA, Lit: ",", Offset: pos}
	case ';':
		tok = token.Token{Type: token.SEMI, Lit: ";", Offset: pos}
	case ':':
		tok = token.Token{Type: token.COLON, Lit: ":", Offset: pos}
	case '!':
		tok = token.Token{Type: token.BANG, Lit: "!", Offset: pos}
	case '@':
		tok = token.Token{Type: token.AT, Lit: "@", Offset: pos}
	case '.':
		if isDigit(l.peekChar()) {
			return l.scanNumber()
		}
		tok = token.Token{Type: token.DOT, Lit: ".", Offset: pos}
	case '"':
		return l.scanString()
	case '\'':
		return l.scanQuotedSheet()
	case '#':
		return l.scanErrorLit()
	default:
		if isDigit(l.ch) {
			return l.scanNumber()
		}
		if isIdentStart(l.ch) || l.ch == '$' {
			return l.scanIdentOrCell()
		}
		tok = token.Token{Type: token.ILLEGAL, Lit: string(l.ch), Offset: pos}
	}

	l.readChar()
	return tok
}

// scanString reads a double-quoted string literal; "" inside is an
// escaped quote.
func (l *Lexer) scanString() token.Token {
	pos := l.position
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lit: l.input[pos:l.position], Offset: pos}
		}
		if l.ch == '"' {
			if l.peekChar() == '"' {
				sb.WriteByte('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: token.STRING, Lit: sb.String(), Offset: pos}
}

// scanQuotedSheet reads a single-quoted sheet name, where '' escapes a
// literal apostrophe. The terminating ! is left for the parser.
func (l *Lexer) scanQuotedSheet() token.Token {
	pos := l.position
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lit: l.input[pos:l.position], Offset: pos}
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				sb.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: token.SHEET, Lit: sb.String(), Offset: pos}
}

/// scanErrorLit reads an error literal: # followed by letters, digits,
// '/', and a terminating '!' or '?'. #N/A carries no terminator.
func (l *Lexer) scanErrorLit() token.Token {
	pos := l.position
	l.readChar() // consume '#'
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '/' || l.ch == '.' || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '!' || l.ch == '?' {
		l.readChar()
	}
	lit := l.input[pos:l.position]
	return token.Token{Type: token.ERRLIT, Lit: lit, Offset: pos}
}

// scanNumber reads a numeric literal with optional fraction and
// exponent. A dangling exponent marker ("1e+") rewinds so the trailing
// characters lex as separate tokens.
func (l *Lexer) scanNumber() token.Token {
	pos := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		mark := l.position
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// not an exponent after all
			l.position = mark
			l.readPosition = mark + 1
			l.ch = l.input[mark]
		}
	}
	return token.Token{Type: token.NUMBER, Lit: l.input[pos:l.position], Offset: pos}
}

// scanIdentOrCell reads a run of identifier characters (with optional
// $ markers) and classifies it as a CELL when it matches the A1
// pattern, IDENT otherwise.
func (l *Lexer) scanIdentOrCell() token.Token {
	pos := l.position
	for isIdentPart(l.ch) || l.ch == '$' {
		l.readChar()
	}
	lit := l.input[pos:l.position]
	if isA1Cell(lit) {
		return token.Token{Type: token.CELL, Lit: lit, Offset: pos}
	}
	return token.Token{Type: token.IDENT, Lit: lit, Offset: pos}
}

// bracketToken scans the interior of a structured reference. Column
// names run until a bracket, separator or item marker; ']]'' escapes a
// literal bracket in a column name when at depth 1.
func (l *Lexer) bracketToken() (token.Token, bool) {
	switch l.ch {
	case '[', ']', '@', ':', ',', '#':
		return token.Token{}, false
	}
	pos := l.position
	var sb strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' && (l.peekChar() == '[' || l.peekChar() == ']' ||
			l.peekChar() == '\'' || l.peekChar() == '#' || l.peekChar() == '@') {
			// quoted special character inside a column name
			sb.WriteByte(l.peekChar())
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '[' || l.ch == ']' || l.ch == '@' || l.ch == ':' ||
			l.ch == ',' || l.ch == '#' {
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	lit := strings.TrimSpace(sb.String())
	if lit == "" {
		return token.Token{}, false
	}
	return token.Token{Type: token.ITEM, Lit: lit, Offset: pos}, true
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch == '\\' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '.' || ch >= 0x80
}

// isA1Cell reports whether lit matches $?letters{1,3}$?digits+ with a
// column within A..XFD and a positive row.
func isA1Cell(lit string) bool {
	i := 0
	if i < len(lit) && lit[i] == '$' {
		i++
	}
	letters := 0
	for i < len(lit) && isLetter(lit[i]) {
		letters++
		i++
	}
	if letters == 0 || letters > 3 {
		return false
	}
	colStart := 0
	if lit[0] == '$' {
		colStart = 1
	}
	col := lit[colStart : colStart+letters]
	if i < len(lit) && lit[i] == '$' {
		i++
	}
	digits := 0
	for i < len(lit) && isDigit(lit[i]) {
		digits++
		i++
	}
	if digits == 0 || i != len(lit) {
		return false
	}
	if _, ok := parseCol(col); !ok {
		return false
	}
	var row uint64
	j := len(lit) - digits
	for ; j < len(lit); j++ {
		row = row*10 + uint64(lit[j]-'0')
		if row > 1048576 {
			return false
		}
	}
	return row >= 1
}

func parseCol(s string) (uint32, bool) {
	var n uint32
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 32
		}
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		n = n*26 + uint32(ch-'A') + 1
	}
	if n == 0 || n > 16384 {
		return 0, false
	}
	return n - 1, true
}
