// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// cursor walks over an input string rune by rune, keeping track of the line
// and column of the current position.
type cursor struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int
}

// init resets the state of the cursor and sets the input string.
func (c *cursor) init(input string) {
	c.input = input
	c.pos = 0
	c.nextPos = 0
	c.char = 0
	c.lineNum = 1
	c.lineStart = 0
	c.advanceChar()
}

// colNum calculates the current column number taking into account line breaks.
func (c *cursor) colNum() int {
	return c.pos - c.lineStart + 1
}

// eof returns true once the cursor has consumed the whole input.
func (c *cursor) eof() bool {
	return c.pos >= len(c.input)
}

// advanceChar moves the cursor to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (c *cursor) advanceChar() bool {
	if c.nextPos >= len(c.input) {
		c.char = 0
		c.pos = c.nextPos
		return false
	}
	if c.char == '\n' {
		c.lineStart = c.nextPos
		c.lineNum++
	}
	var size int
	c.char, size = utf8.DecodeRuneInString(c.input[c.nextPos:])
	c.pos = c.nextPos
	c.nextPos += size
	return true
}

// A checkpoint struct for saving cursor state to restore later.
type checkpoint struct {
	cursor    *cursor
	pos       int
	nextPos   int
	char      rune
	lineNum   int
	lineStart int
}

// save takes a snapshot of the state of the cursor and returns a pointer to a
// checkpoint that represents it.
func (c *cursor) save() *checkpoint {
	return &checkpoint{
		cursor:    c,
		pos:       c.pos,
		nextPos:   c.nextPos,
		char:      c.char,
		lineNum:   c.lineNum,
		lineStart: c.lineStart,
	}
}

// restore sets the internal state of the cursor to the values stored in the
// checkpoint.
func (cp *checkpoint) restore() {
	cp.cursor.pos = cp.pos
	cp.cursor.nextPos = cp.nextPos
	cp.cursor.char = cp.char
	cp.cursor.lineNum = cp.lineNum
	cp.cursor.lineStart = cp.lineStart
}

// colNum calculates the column number of the checkpoint.
func (cp *checkpoint) colNum() int {
	return cp.pos - cp.lineStart + 1
}

// spanTo returns the span stretching from the checkpoint to the current
// position of its cursor.
func (cp *checkpoint) spanTo() Span {
	return Span{Start: cp.pos, End: cp.cursor.pos, Line: cp.lineNum, Column: cp.colNum()}
}

// peekChar returns true if the current char equals the one passed as parameter.
func (c *cursor) peekChar(r rune) bool {
	return c.pos < len(c.input) && c.char == r
}

// peekString returns true if the input at the current position starts with s.
func (c *cursor) peekString(s string) bool {
	return strings.HasPrefix(c.input[c.pos:], s)
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (c *cursor) skipChar(r rune) bool {
	if c.pos < len(c.input) && c.char == r {
		c.advanceChar()
		return true
	}
	return false
}

// skipString jumps over s if the input at the current position starts with
// it. The match is case sensitive.
func (c *cursor) skipString(s string) bool {
	if !c.peekString(s) {
		return false
	}
	end := c.pos + len(s)
	for c.pos < end {
		c.advanceChar()
	}
	return true
}

// skipBlanks advances the cursor past spaces, tabs and newlines. Returns
// whether the cursor position was changed.
func (c *cursor) skipBlanks() bool {
	mark := c.pos
	for c.pos < len(c.input) {
		switch c.char {
		case ' ', '\t', '\r', '\n':
			c.advanceChar()
		default:
			return c.pos != mark
		}
	}
	return c.pos != mark
}

// isNameChar returns true if the given char can be part of a name. It returns
// false otherwise.
func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isInitialNameChar returns true if the given char can appear at the start of a
// name. It returns false otherwise.
func isInitialNameChar(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// skipNameChars advances the cursor past a run of name chars, including a
// leading digit, and returns true if at least one char was skipped.
func (c *cursor) skipNameChars() bool {
	mark := c.pos
	for c.pos < len(c.input) && isNameChar(c.char) {
		c.advanceChar()
	}
	return c.pos > mark
}
