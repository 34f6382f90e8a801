package clj

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type parser struct {
	input []rune
	pos   int
}

// Parse reads a program. A single top-level form is returned as is; several
// forms are wrapped in (do ...). Line comments after the last form are
// dropped so they do not become the program's result.
func Parse(input string) (Value, error) {
	forms, trailing, err := readProgram(input)
	if err != nil {
		return Value{}, err
	}
	if trailing < len(forms) {
		forms = forms[:len(forms)-trailing]
	}
	switch len(forms) {
	case 0:
		return Value{}, &ParseError{Pos: 0, Msg: "empty input"}
	case 1:
		return forms[0], nil
	default:
		return ListVal(append([]Value{SymbolVal("do")}, forms...)), nil
	}
}

// ParseAll reads every top-level form. A line comment at the top level is
// read as (comment "text"); comments inside a collection are skipped.
func ParseAll(input string) ([]Value, error) {
	forms, _, err := readProgram(input)
	return forms, err
}

// readProgram also counts the line comments that follow the last form.
func readProgram(input string) (forms []Value, trailing int, err error) {
	p := &parser{input: []rune(input)}
	for {
		p.skipWhitespace(false)
		if p.pos >= len(p.input) {
			return forms, trailing, nil
		}
		if p.input[p.pos] == ';' {
			forms = append(forms, p.readComment())
			trailing++
			continue
		}
		form, err := p.parseForm()
		if err != nil {
			return nil, 0, err
		}
		forms = append(forms, form)
		trailing = 0
	}
}

func (p *parser) errorf(incomplete bool, format string, args ...any) error {
	return &ParseError{Pos: p.pos, Msg: fmt.Sprintf(format, args...), Incomplete: incomplete}
}

func (p *parser) parseForm() (Value, error) {
	if p.pos >= len(p.input) {
		return Value{}, p.errorf(true, "unexpected end of input")
	}
	switch ch := p.input[p.pos]; ch {
	case '\'':
		return p.parseQuote()
	case '(':
		elems, err := p.parseColl(')')
		if err != nil {
			return Value{}, err
		}
		return ListVal(elems), nil
	case '[':
		elems, err := p.parseColl(']')
		if err != nil {
			return Value{}, err
		}
		return VectorVal(elems), nil
	case '{':
		elems, err := p.parseColl('}')
		if err != nil {
			return Value{}, err
		}
		return NewMap(elems...)
	case ')', ']', '}':
		return Value{}, p.errorf(false, "unexpected %c", ch)
	case '"':
		return p.parseString()
	default:
		return p.parseAtom()
	}
}

func (p *parser) parseQuote() (Value, error) {
	p.pos++ // skip '\''
	p.skipWhitespace(true)
	inner, err := p.parseForm()
	if err != nil {
		return Value{}, err
	}
	return NewList(SymbolVal("quote"), inner), nil
}

func (p *parser) parseColl(closer rune) ([]Value, error) {
	start := p.pos
	p.pos++ // skip opener
	children := []Value{}
	for {
		p.skipWhitespace(true)
		if p.pos >= len(p.input) {
			return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("unclosed %c", p.input[start]), Incomplete: true}
		}
		ch := p.input[p.pos]
		if ch == closer {
			p.pos++ // skip closer
			return children, nil
		}
		if ch == ')' || ch == ']' || ch == '}' {
			return nil, p.errorf(false, "unexpected %c, expected %c", ch, closer)
		}
		child, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
}

func (p *parser) parseString() (Value, error) {
	start := p.pos
	p.pos++ // skip opening '"'
	var buf strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\\' {
			p.pos++
			if p.pos >= len(p.input) {
				return Value{}, p.errorf(true, "unexpected end of input in string escape")
			}
			esc := p.input[p.pos]
			switch esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			case '"':
				buf.WriteRune('"')
			default:
				return Value{}, p.errorf(false, "unknown escape sequence: \\%c", esc)
			}
			p.pos++
			continue
		}
		if ch == '"' {
			p.pos++ // skip closing '"'
			return StringVal(buf.String()), nil
		}
		buf.WriteRune(ch)
		p.pos++
	}
	return Value{}, &ParseError{Pos: start, Msg: "unclosed string", Incomplete: true}
}

func (p *parser) parseAtom() (Value, error) {
	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}
	token := string(p.input[start:p.pos])
	if token == "" {
		return Value{}, p.errorf(false, "unexpected character: %c", p.input[start])
	}

	switch token {
	case "true":
		return BoolVal(true), nil
	case "false":
		return BoolVal(false), nil
	case "nil":
		return NilVal(), nil
	}

	if token[0] == ':' {
		if len(token) == 1 {
			return Value{}, p.errorf(false, "empty keyword")
		}
		return KeywordVal(token[1:]), nil
	}

	if looksNumeric(token) {
		if i, err := strconv.ParseInt(token, 10, 64); err == nil {
			return IntVal(i), nil
		}
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return FloatVal(f), nil
		}
		return Value{}, &ParseError{Pos: start, Msg: fmt.Sprintf("invalid number: %s", token)}
	}

	return SymbolVal(token), nil
}

// looksNumeric keeps names like "inf" or "-" from being read as numbers.
func looksNumeric(token string) bool {
	if token[0] == '-' || token[0] == '+' {
		token = token[1:]
	}
	return token != "" && token[0] >= '0' && token[0] <= '9'
}

func (p *parser) readComment() Value {
	p.pos++ // skip ';'
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '\n' {
		p.pos++
	}
	return NewList(SymbolVal("comment"), StringVal(string(p.input[start:p.pos])))
}

// skipWhitespace skips spaces and commas, and line comments when
// skipComments is set.
func (p *parser) skipWhitespace(skipComments bool) {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ';' {
			if !skipComments {
				return
			}
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(ch) && ch != ',' {
			break
		}
		p.pos++
	}
}

func isDelimiter(ch rune) bool {
	switch ch {
	case '(', ')', '[', ']', '{', '}', '"', ';', '\'', ',':
		return true
	}
	return unicode.IsSpace(ch)
}
