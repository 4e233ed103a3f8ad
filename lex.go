package keycalc

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Operators contains the runes which are tokens on their own. × and ÷ are
// read as * and /.
const Operators = "+-*/^×÷"

type lexer struct {
	src io.RuneScanner
	buf strings.Builder
	// rune is the column of the next rune.
	rune int
	// sep is whether the previous rune separated tokens.
	sep bool
	// num is whether the previous token ended an operand typed as a number.
	num bool
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{
		src:  src,
		rune: 1,
		sep:  true,
	}
}

// Tokenize splits text into parser tokens. Tokens are separated by whitespace
// or stand alone as operators. Numbers may carry a sign when they start a
// word that does not follow a number, as in "abs -4"; "10 -2" is a
// subtraction. The two-rune tokens -> and +- are navigation and sign
// change. Names may contain # and : so that "#var:y" is one token. On error,
// the result holds the tokens before the invalid one.
func Tokenize(src io.RuneScanner) ([]string, error) {
	l := lex(src)
	var toks []string
	for {
		tok, err := l.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return toks, nil
			}
			return toks, err
		}
		toks = append(toks, tok)
	}
}

// TokenizeString is a shortcut to tokenize a string.
func TokenizeString(src string) ([]string, error) {
	return Tokenize(strings.NewReader(src))
}

// readRune reads a rune from the src and updates the lexer's position info.
func (l *lexer) readRune() (rune, error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.rune++
	}
	return r, err
}

// unreadRune unreads a rune from the src and updates the lexer's position
// info. Panics if unreading returns an error.
func (l *lexer) unreadRune() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.rune--
}

// peek returns the next rune without consuming it, or -1 at the end of input.
func (l *lexer) peek() rune {
	r, err := l.readRune()
	if err != nil {
		return -1
	}
	l.unreadRune()
	return r
}

// next scans the next token from the input. At the end of the input, the
// error is io.EOF.
func (l *lexer) next() (string, error) {
	defer l.buf.Reset()
	for {
		sep, num := l.sep, l.num
		r, err := l.readRune()
		if err != nil {
			return "", err
		}
		l.sep, l.num = false, false
		switch {
		case unicode.IsSpace(r):
			l.sep, l.num = true, num
			continue
		case '0' <= r && r <= '9', r == '.':
			l.unreadRune()
			if err := l.scanNum(); err != nil {
				return "", err
			}
			l.num = true
			return l.buf.String(), nil
		case r == '_', r == '#', unicode.IsLetter(r):
			l.unreadRune()
			if err := l.scanIdent(); err != nil {
				return "", err
			}
			return l.buf.String(), nil
		case r == '-' && l.peek() == '>':
			l.readRune()
			return TokenNext, nil
		case r == '+' && l.peek() == '-':
			l.readRune()
			l.num = true
			return TokenSign, nil
		case (r == '-' || r == '+') && sep && !num && startsNum(l.peek()):
			l.buf.WriteRune(r)
			if err := l.scanNum(); err != nil {
				return "", err
			}
			l.num = true
			return l.buf.String(), nil
		case r == '×':
			l.sep = true
			return "*", nil
		case r == '÷':
			l.sep = true
			return "/", nil
		case strings.ContainsRune(Operators, r):
			l.sep = true
			return string(r), nil
		default:
			// Write the rune so that it shows up in the error message.
			l.buf.WriteRune(r)
			return "", l.error("")
		}
	}
}

func startsNum(r rune) bool {
	return '0' <= r && r <= '9' || r == '.'
}

// scanNum scans a number. A lone point is a number so that it can be typed
// between the digits of a literal.
func (l *lexer) scanNum() error {
	var dig, dot, e, le, ed bool
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if unicode.IsSpace(r) {
			l.unreadRune()
			break
		}
		if r == '+' || r == '-' {
			// + or - anywhere other than immediately following an exponent
			// marker means a new token, as it is an operator.
			if !le {
				l.unreadRune()
				break
			}
			le = false
			l.buf.WriteRune(r)
			continue
		}
		if strings.ContainsRune(Operators, r) {
			l.unreadRune()
			break
		}
		l.buf.WriteRune(r)
		switch r {
		case '.':
			if dot || e {
				return l.error("number")
			}
			dot = true
			le = false
		case 'e', 'E':
			if !dig || e {
				return l.error("number")
			}
			e = true
			le = true
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			if e {
				ed = true
			} else {
				dig = true
			}
			le = false
		default:
			return l.error("number")
		}
	}
	if e && !ed {
		return l.error("number")
	}
	if !dig && !dot {
		return l.error("number")
	}
	return nil
}

func (l *lexer) scanIdent() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// next unreads the rune that decides ident scanning before
				// calling scanIdent, so we have scanned at least one rune.
				return nil
			}
			return err
		}
		switch {
		case r == '_', r == '#', r == '.', r == ':', unicode.IsLetter(r), unicode.IsDigit(r):
			l.buf.WriteRune(r)
		case r == '-' && l.buf.Len() > 0 && strings.HasSuffix(l.buf.String(), ArgSep):
			// Token arguments may be negative numbers, as in #number:-2.
			l.buf.WriteRune(r)
		default:
			l.unreadRune()
			return nil
		}
	}
}

func (l *lexer) error(kind string) error {
	return &LexError{
		Text: l.buf.String(),
		Kind: kind,
		Col:  l.rune - 1,
	}
}

// LexError indicates an invalid token.
type LexError struct {
	// Text is the token the lexer was scanning when the invalid rune was
	// encountered, plus the invalid rune.
	Text string
	// Kind is the type of token the lexer was scanning. This may be "number"
	// or the empty string if a token kind hadn't been decided.
	Kind string
	// Col is the number of runes scanned up to and including the invalid one.
	Col int
}

func (err *LexError) Error() string {
	pos := "column " + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + strconv.Quote(err.Text)
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + strconv.Quote(err.Text)
}
