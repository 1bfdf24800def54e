// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"strings"
)

// Mode is the placeholder style of a whole template.
type Mode int

const (
	// Positional templates only use "$1", "$2", ... placeholders. The
	// arguments are matched by position.
	Positional Mode = iota
	// Named templates use at least one "$name" placeholder. The arguments are
	// matched by name.
	Named
)

func (m Mode) String() string {
	if m == Named {
		return "named"
	}
	return "positional"
}

// Template is a SQL query template split into placeholders and the text in
// between them.
type Template struct {
	sql   string
	parts []queryPart
}

// SQL returns the template text as it was parsed.
func (t *Template) SQL() string {
	return t.sql
}

// Mode returns Positional if every placeholder of the template is made up of
// digits only, and Named otherwise. A template without placeholders is
// Positional.
func (t *Template) Mode() Mode {
	for _, p := range t.placeholders() {
		if !p.positional() {
			return Named
		}
	}
	return Positional
}

// Placeholders returns the placeholders of the template, as written, in
// order of appearance.
func (t *Template) Placeholders() []string {
	var raws []string
	for _, p := range t.placeholders() {
		raws = append(raws, p.raw)
	}
	return raws
}

func (t *Template) placeholders() []*placeholderPart {
	var ps []*placeholderPart
	for _, part := range t.parts {
		if p, ok := part.(*placeholderPart); ok {
			ps = append(ps, p)
		}
	}
	return ps
}

// String returns a textual representation of the template parts for
// debugging and testing purposes.
func (t *Template) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, p := range t.parts {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// ParseTemplate splits the SQL text into placeholder tokens and literal text.
// Placeholders found inside string literals, quoted identifiers, comments
// and dollar quoted strings are left untouched.
func ParseTemplate(sql string) (*Template, error) {
	s := &templateScanner{}
	s.init(sql)
	for !s.eof() {
		if ok, err := s.skipLiteral(); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if s.peekChar('$') {
			if ok, err := s.skipDollarQuoted(); err != nil {
				return nil, err
			} else if ok {
				continue
			}
			if p, ok := s.parsePlaceholder(); ok {
				s.add(p)
				continue
			}
		}
		if isInitialNameChar(s.char) {
			if err := s.skipWord(); err != nil {
				return nil, err
			}
			continue
		}
		s.advanceChar()
	}
	s.add(nil)
	return &Template{sql: sql, parts: s.parts}, nil
}

// templateScanner splits a SQL template into queryParts.
type templateScanner struct {
	cursor
	// prevPartEnd is the value of pos when we last finished parsing a
	// placeholder.
	prevPartEnd int
	parts       []queryPart
}

// add pushes the placeholder to the list of parts along with the bypass
// chunk that stretches from the end of the previous placeholder to the
// beginning of this one. A nil placeholder flushes the remaining text.
func (s *templateScanner) add(p *placeholderPart) {
	end := s.pos
	if p != nil {
		end = p.span.Start
	}
	if s.prevPartEnd != end {
		s.parts = append(s.parts, &bypassPart{s.input[s.prevPartEnd:end]})
	}
	if p != nil {
		s.parts = append(s.parts, p)
	}
	s.prevPartEnd = s.pos
}

// skipLiteral jumps over string literals, quoted identifiers and comments.
func (s *templateScanner) skipLiteral() (bool, error) {
	switch {
	case s.peekChar('\''):
		return s.skipQuoted('\'', false)
	case s.peekChar('"'):
		return s.skipQuoted('"', false)
	case s.peekString("--"):
		for !s.eof() && s.char != '\n' {
			s.advanceChar()
		}
		return true, nil
	case s.peekString("/*"):
		return s.skipBlockComment()
	}
	return false, nil
}

// skipQuoted jumps over a section delimited by quote. Doubled up quotes are
// escaped. If backslash is true, a backslash escapes the next char as in
// Postgres E'...' strings.
func (s *templateScanner) skipQuoted(quote rune, backslash bool) (bool, error) {
	cp := s.save()
	s.advanceChar()
	for !s.eof() {
		switch {
		case backslash && s.char == '\\':
			s.advanceChar()
		case s.char == quote:
			s.advanceChar()
			if !s.peekChar(quote) {
				return true, nil
			}
		}
		s.advanceChar()
	}
	span := cp.spanTo()
	cp.restore()
	if quote == '"' {
		return false, syntaxError(span, "missing closing quote in quoted identifier")
	}
	return false, syntaxError(span, "missing closing quote in string literal")
}

// skipBlockComment jumps over a /* */ comment. Block comments nest.
func (s *templateScanner) skipBlockComment() (bool, error) {
	cp := s.save()
	depth := 0
	for !s.eof() {
		switch {
		case s.skipString("/*"):
			depth++
		case s.skipString("*/"):
			depth--
			if depth == 0 {
				return true, nil
			}
		default:
			s.advanceChar()
		}
	}
	span := cp.spanTo()
	cp.restore()
	return false, syntaxError(span, "missing end of block comment")
}

// dollarTag returns the "$tag$" opening a dollar quoted string at the
// current position, if there is one.
func (s *templateScanner) dollarTag() (string, bool) {
	rest := s.input[s.pos+1:]
	i := strings.IndexFunc(rest, func(r rune) bool { return !isNameChar(r) })
	if i < 0 || rest[i] != '$' {
		return "", false
	}
	tag := rest[:i]
	if tag != "" && !isInitialNameChar([]rune(tag)[0]) {
		return "", false
	}
	return "$" + tag + "$", true
}

// skipDollarQuoted jumps over a $tag$...$tag$ string.
func (s *templateScanner) skipDollarQuoted() (bool, error) {
	tag, ok := s.dollarTag()
	if !ok {
		return false, nil
	}
	cp := s.save()
	s.skipString(tag)
	for !s.eof() {
		if s.skipString(tag) {
			return true, nil
		}
		s.advanceChar()
	}
	span := cp.spanTo()
	cp.restore()
	return false, syntaxError(span, "missing closing %s in dollar quoted string", tag)
}

// parsePlaceholder parses a "$" followed by at least one name char.
func (s *templateScanner) parsePlaceholder() (*placeholderPart, bool) {
	cp := s.save()
	if !s.skipChar('$') || !s.skipNameChars() {
		cp.restore()
		return nil, false
	}
	span := cp.spanTo()
	return &placeholderPart{raw: s.input[span.Start:span.End], span: span}, true
}

// skipWord jumps over a SQL keyword or identifier, which may contain "$"
// after its first char. A word of "E" or "e" directly followed by a quote
// starts an escape string.
func (s *templateScanner) skipWord() error {
	start := s.pos
	for !s.eof() && (isNameChar(s.char) || s.char == '$') {
		s.advanceChar()
	}
	if word := s.input[start:s.pos]; (word == "E" || word == "e") && s.peekChar('\'') {
		_, err := s.skipQuoted('\'', true)
		return err
	}
	return nil
}
