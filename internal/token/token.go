package token

// Type identifies a lexical token class.
type Type int

const (
	EOF Type = iota
	ILLEGAL

	// literals
	NUMBER // 42, 3.14, 1e-9
	STRING // "text" with "" escape
	ERRLIT // #DIV/0!, #N/A, #REF!
	IDENT  // function or defined name
	CELL   // A1, $B$2, XFD1048576
	SHEET  // sheet-name prefix, terminated by !
	ITEM   // structured-reference interior: column name or #Headers

	// punctuation and operators
	PLUS
	MINUS
	STAR
	SLASH
	CARET
	AMP
	PERCENT
	EQ
	NE
	LT
	LE
	GT
	GE
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMI
	COLON
	BANG
	AT
	DOT
)

var names = map[Type]string{
	EOF:      "EOF",
	ILLEGAL:  "ILLEGAL",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	ERRLIT:   "ERRLIT",
	IDENT:    "IDENT",
	CELL:     "CELL",
	SHEET:    "SHEET",
	ITEM:     "ITEM",
	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	CARET:    "^",
	AMP:      "&",
	PERCENT:  "%",
	EQ:       "=",
	NE:       "<>",
	LT:       "<",
	LE:       "<=",
	GT:       ">",
	GE:       ">=",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACE:   "{",
	RBRACE:   "}",
	LBRACKET: "[",
	RBRACKET: "]",
	COMMA:    ",",
	SEMI:     ";",
	COLON:    ":",
	BANG:     "!",
	AT:       "@",
	DOT:      ".",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a lexeme with its byte offset in the formula source.
type Token struct {
	Type   Type
	Lit    string
	Offset int
}
