package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT      // list, x, String, ...
	INT        // 42, 0x2A, 1_000, 42L
	FLOAT      // 3.14, 1e10, 2f, 1.5d
	CHAR       // 'a', '\n'
	STRING     // "foobar"
	TEXT_BLOCK // """ ... """

	// Operators
	ASSIGN     // =
	PLUS       // +
	MINUS      // -
	BANG       // !
	TILDE      // ~
	ASTERISK   // *
	SLASH      // /
	PERCENT    // %
	LT         // <
	GT         // > (shift operators are assembled by the parser)
	LTE        // <=
	GTE        // >=
	EQ         // ==
	NOT_EQ     // !=
	AND_AND    // &&
	OR_OR      // ||
	AMP        // &
	PIPE       // |
	CARET      // ^
	SHL        // <<
	QUESTION   // ?
	COLON      // :
	COLONCOLON // ::
	ARROW      // ->
	PLUSPLUS   // ++
	MINUSMINUS // --

	PLUS_ASSIGN    // +=
	MINUS_ASSIGN   // -=
	STAR_ASSIGN    // *=
	SLASH_ASSIGN   // /=
	PERCENT_ASSIGN // %=
	AMP_ASSIGN     // &=
	PIPE_ASSIGN    // |=
	CARET_ASSIGN   // ^=
	SHL_ASSIGN     // <<=

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	DOT       // .
	ELLIPSIS  // ...
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	AT        // @

	// Keywords
	keywordStart
	ABSTRACT
	ASSERT
	BOOLEAN
	BREAK
	BYTE
	CASE
	CATCH
	CHAR_KW
	CLASS
	CONST
	CONTINUE
	DEFAULT
	DO
	DOUBLE
	ELSE
	ENUM
	EXTENDS
	FALSE
	FINAL
	FINALLY
	FLOAT_KW
	FOR
	GOTO
	IF
	IMPLEMENTS
	IMPORT
	INSTANCEOF
	INT_KW
	INTERFACE
	LONG
	NATIVE
	NEW
	NULL
	PACKAGE
	PRIVATE
	PROTECTED
	PUBLIC
	RETURN
	SHORT
	STATIC
	STRICTFP
	SUPER
	SWITCH
	SYNCHRONIZED
	THIS
	THROW
	THROWS
	TRANSIENT
	TRUE
	TRY
	VOID
	VOLATILE
	WHILE
	keywordEnd
)

// Token represents a single token. Pos and End are byte offsets into the
// input; End is exclusive.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Pos     int
	End     int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// Comment is a line or block comment together with its location.
type Comment struct {
	Text   string
	Pos    int
	End    int
	Line   int
	Column int
	Block  bool
}

var tokenNames = map[TokenType]string{
	ILLEGAL:        "ILLEGAL",
	EOF:            "EOF",
	IDENT:          "IDENT",
	INT:            "INT",
	FLOAT:          "FLOAT",
	CHAR:           "CHAR",
	STRING:         "STRING",
	TEXT_BLOCK:     "TEXT_BLOCK",
	ASSIGN:         "=",
	PLUS:           "+",
	MINUS:          "-",
	BANG:           "!",
	TILDE:          "~",
	ASTERISK:       "*",
	SLASH:          "/",
	PERCENT:        "%",
	LT:             "<",
	GT:             ">",
	LTE:            "<=",
	GTE:            ">=",
	EQ:             "==",
	NOT_EQ:         "!=",
	AND_AND:        "&&",
	OR_OR:          "||",
	AMP:            "&",
	PIPE:           "|",
	CARET:          "^",
	SHL:            "<<",
	QUESTION:       "?",
	COLON:          ":",
	COLONCOLON:     "::",
	ARROW:          "->",
	PLUSPLUS:       "++",
	MINUSMINUS:     "--",
	PLUS_ASSIGN:    "+=",
	MINUS_ASSIGN:   "-=",
	STAR_ASSIGN:    "*=",
	SLASH_ASSIGN:   "/=",
	PERCENT_ASSIGN: "%=",
	AMP_ASSIGN:     "&=",
	PIPE_ASSIGN:    "|=",
	CARET_ASSIGN:   "^=",
	SHL_ASSIGN:     "<<=",
	COMMA:          ",",
	SEMICOLON:      ";",
	DOT:            ".",
	ELLIPSIS:       "...",
	LPAREN:         "(",
	RPAREN:         ")",
	LBRACE:         "{",
	RBRACE:         "}",
	LBRACKET:       "[",
	RBRACKET:       "]",
	AT:             "@",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	for word, kw := range keywords {
		if kw == tt {
			return word
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsKeyword reports whether the token type is a reserved word.
func (tt TokenType) IsKeyword() bool {
	return tt > keywordStart && tt < keywordEnd
}

// IsPrimitiveType reports whether the token names a primitive type.
func (tt TokenType) IsPrimitiveType() bool {
	switch tt {
	case BOOLEAN, BYTE, CHAR_KW, SHORT, INT_KW, LONG, FLOAT_KW, DOUBLE:
		return true
	}
	return false
}

var keywords = map[string]TokenType{
	"abstract":     ABSTRACT,
	"assert":       ASSERT,
	"boolean":      BOOLEAN,
	"break":        BREAK,
	"byte":         BYTE,
	"case":         CASE,
	"catch":        CATCH,
	"char":         CHAR_KW,
	"class":        CLASS,
	"const":        CONST,
	"continue":     CONTINUE,
	"default":      DEFAULT,
	"do":           DO,
	"double":       DOUBLE,
	"else":         ELSE,
	"enum":         ENUM,
	"extends":      EXTENDS,
	"false":        FALSE,
	"final":        FINAL,
	"finally":      FINALLY,
	"float":        FLOAT_KW,
	"for":          FOR,
	"goto":         GOTO,
	"if":           IF,
	"implements":   IMPLEMENTS,
	"import":       IMPORT,
	"instanceof":   INSTANCEOF,
	"int":          INT_KW,
	"interface":    INTERFACE,
	"long":         LONG,
	"native":       NATIVE,
	"new":          NEW,
	"null":         NULL,
	"package":      PACKAGE,
	"private":      PRIVATE,
	"protected":    PROTECTED,
	"public":       PUBLIC,
	"return":       RETURN,
	"short":        SHORT,
	"static":       STATIC,
	"strictfp":     STRICTFP,
	"super":        SUPER,
	"switch":       SWITCH,
	"synchronized": SYNCHRONIZED,
	"this":         THIS,
	"throw":        THROW,
	"throws":       THROWS,
	"transient":    TRANSIENT,
	"true":         TRUE,
	"try":          TRY,
	"void":         VOID,
	"volatile":     VOLATILE,
	"while":        WHILE,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Lexer represents the lexical analyzer
type Lexer struct {
	filename     string
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination (first byte)
	chRune       rune // current character as a rune
	line         int
	column       int
	comments     []Comment
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input string, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Filename returns the name the lexer was created with.
func (l *Lexer) Filename() string { return l.filename }

// Input returns the source text being scanned.
func (l *Lexer) Input() string { return l.input }

// Comments returns every comment seen so far, in source order.
func (l *Lexer) Comments() []Comment { return l.comments }

// LexerState holds the state of a lexer for save/restore
type LexerState struct {
	position     int
	readPosition int
	ch           byte
	chRune       rune
	line         int
	column       int
	comments     int
}

// SaveState saves the current lexer state for potential restoration
func (l *Lexer) SaveState() LexerState {
	return LexerState{
		position:     l.position,
		readPosition: l.readPosition,
		ch:           l.ch,
		chRune:       l.chRune,
		line:         l.line,
		column:       l.column,
		comments:     len(l.comments),
	}
}

// RestoreState restores the lexer to a previously saved state
func (l *Lexer) RestoreState(state LexerState) {
	l.position = state.position
	l.readPosition = state.readPosition
	l.ch = state.ch
	l.chRune = state.chRune
	l.line = state.line
	l.column = state.column
	l.comments = l.comments[:state.comments]
}

// PeekToken returns the next token without consuming it
func (l *Lexer) PeekToken() Token {
	state := l.SaveState()
	tok := l.NextToken()
	l.RestoreState(state)
	return tok
}

// readChar reads the next character and advances position.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.chRune = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}

	b := l.input[l.readPosition]
	size := 1
	l.chRune = rune(b)
	if b >= utf8.RuneSelf {
		l.chRune, size = utf8.DecodeRuneInString(l.input[l.readPosition:])
	}
	if l.position < len(l.input) && l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.ch = b
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekCharN(n int) byte {
	pos := l.readPosition + n - 1
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	start, line, col := l.position, l.line, l.column
	mk := func(tt TokenType, n int) Token {
		for i := 0; i < n; i++ {
			l.readChar()
		}
		return Token{Type: tt, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
	}

	if l.position >= len(l.input) {
		return Token{Type: EOF, Line: line, Column: col, Pos: len(l.input), End: len(l.input)}
	}

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			return mk(EQ, 2)
		}
		return mk(ASSIGN, 1)
	case '+':
		switch l.peekChar() {
		case '+':
			return mk(PLUSPLUS, 2)
		case '=':
			return mk(PLUS_ASSIGN, 2)
		}
		return mk(PLUS, 1)
	case '-':
		switch l.peekChar() {
		case '-':
			return mk(MINUSMINUS, 2)
		case '=':
			return mk(MINUS_ASSIGN, 2)
		case '>':
			return mk(ARROW, 2)
		}
		return mk(MINUS, 1)
	case '*':
		if l.peekChar() == '=' {
			return mk(STAR_ASSIGN, 2)
		}
		return mk(ASTERISK, 1)
	case '/':
		if l.peekChar() == '=' {
			return mk(SLASH_ASSIGN, 2)
		}
		return mk(SLASH, 1)
	case '%':
		if l.peekChar() == '=' {
			return mk(PERCENT_ASSIGN, 2)
		}
		return mk(PERCENT, 1)
	case '!':
		if l.peekChar() == '=' {
			return mk(NOT_EQ, 2)
		}
		return mk(BANG, 1)
	case '~':
		return mk(TILDE, 1)
	case '<':
		if l.peekChar() == '<' {
			if l.peekCharN(2) == '=' {
				return mk(SHL_ASSIGN, 3)
			}
			return mk(SHL, 2)
		}
		if l.peekChar() == '=' {
			return mk(LTE, 2)
		}
		return mk(LT, 1)
	case '>':
		if l.peekChar() == '=' {
			return mk(GTE, 2)
		}
		return mk(GT, 1)
	case '&':
		switch l.peekChar() {
		case '&':
			return mk(AND_AND, 2)
		case '=':
			return mk(AMP_ASSIGN, 2)
		}
		return mk(AMP, 1)
	case '|':
		switch l.peekChar() {
		case '|':
			return mk(OR_OR, 2)
		case '=':
			return mk(PIPE_ASSIGN, 2)
		}
		return mk(PIPE, 1)
	case '^':
		if l.peekChar() == '=' {
			return mk(CARET_ASSIGN, 2)
		}
		return mk(CARET, 1)
	case '?':
		return mk(QUESTION, 1)
	case ':':
		if l.peekChar() == ':' {
			return mk(COLONCOLON, 2)
		}
		return mk(COLON, 1)
	case ',':
		return mk(COMMA, 1)
	case ';':
		return mk(SEMICOLON, 1)
	case '.':
		if l.peekChar() == '.' && l.peekCharN(2) == '.' {
			return mk(ELLIPSIS, 3)
		}
		if isDigit(l.peekChar()) {
			l.readNumber()
			return Token{Type: FLOAT, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
		}
		return mk(DOT, 1)
	case '(':
		return mk(LPAREN, 1)
	case ')':
		return mk(RPAREN, 1)
	case '{':
		return mk(LBRACE, 1)
	case '}':
		return mk(RBRACE, 1)
	case '[':
		return mk(LBRACKET, 1)
	case ']':
		return mk(RBRACKET, 1)
	case '@':
		return mk(AT, 1)
	case '"':
		if l.peekChar() == '"' && l.peekCharN(2) == '"' {
			tt := TEXT_BLOCK
			if !l.readTextBlock() {
				tt = ILLEGAL
			}
			return Token{Type: tt, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
		}
		tt := STRING
		if !l.readQuoted('"') {
			tt = ILLEGAL
		}
		return Token{Type: tt, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
	case '\'':
		tt := CHAR
		if !l.readQuoted('\'') {
			tt = ILLEGAL
		}
		return Token{Type: tt, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
	}

	if isDigit(l.ch) {
		float := l.readNumber()
		tt := INT
		if float {
			tt = FLOAT
		}
		return Token{Type: tt, Literal: l.input[start:l.position], Line: line, Column: col, Pos: start, End: l.position}
	}
	if isLetterRune(l.chRune) {
		ident := l.readIdentifier()
		return Token{Type: LookupIdent(ident), Literal: ident, Line: line, Column: col, Pos: start, End: l.position}
	}
	return mk(ILLEGAL, 1)
}

// skipTrivia skips whitespace and records comments.
func (l *Lexer) skipTrivia() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			l.readLineComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readBlockComment()
			continue
		}
		return
	}
}

func (l *Lexer) readLineComment() {
	start, line, col := l.position, l.line, l.column
	for l.ch != '\n' && l.position < len(l.input) {
		l.readChar()
	}
	end := l.position
	if end > start && l.input[end-1] == '\r' {
		end--
	}
	l.comments = append(l.comments, Comment{Text: l.input[start:end], Pos: start, End: end, Line: line, Column: col})
}

func (l *Lexer) readBlockComment() {
	start, line, col := l.position, l.line, l.column
	l.readChar()
	l.readChar()
	for l.position < len(l.input) && !(l.ch == '*' && l.peekChar() == '/') {
		l.readChar()
	}
	if l.position < len(l.input) {
		l.readChar()
		l.readChar()
	}
	l.comments = append(l.comments, Comment{Text: l.input[start:l.position], Pos: start, End: l.position, Line: line, Column: col, Block: true})
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetterRune(l.chRune) || unicode.IsDigit(l.chRune) || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber consumes a numeric literal and reports whether it is floating point.
func (l *Lexer) readNumber() bool {
	float := false
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X' || l.peekChar() == 'b' || l.peekChar() == 'B') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		if l.ch == 'l' || l.ch == 'L' {
			l.readChar()
		}
		return false
	}
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && l.peekChar() != '.' && !isLetter(l.peekChar()) {
		float = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		float = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	switch l.ch {
	case 'l', 'L':
		l.readChar()
	case 'f', 'F', 'd', 'D':
		float = true
		l.readChar()
	}
	return float
}

// readQuoted consumes a string or char literal including both quotes.
func (l *Lexer) readQuoted(quote byte) bool {
	l.readChar()
	for l.ch != quote {
		if l.position >= len(l.input) || l.ch == '\n' {
			return false
		}
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar()
	return true
}

func (l *Lexer) readTextBlock() bool {
	l.readChar()
	l.readChar()
	l.readChar()
	for l.position < len(l.input) {
		if l.ch == '\\' {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '"' && l.peekChar() == '"' && l.peekCharN(2) == '"' {
			l.readChar()
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	return false
}

func isLetter(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isLetterRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Tokenize scans the whole input and returns every token up to and including EOF.
func Tokenize(input string) []Token {
	l := New(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}
