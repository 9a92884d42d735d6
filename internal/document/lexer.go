package document

import "strings"

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenTag
	TokenPlaceholder
)

func (k TokenKind) String() string {
	switch k {
	case TokenTag:
		return "tag"
	case TokenPlaceholder:
		return "placeholder"
	}
	return "text"
}

type Token struct {
	Kind TokenKind
	Text string
}

// Lex splits markup into tags, mustache placeholders and text runs.
// Concatenating the token texts always reproduces the input. Anything that
// does not close properly (an unterminated "{{" or "<") is text, and
// adjacent text is merged into one token.
func Lex(markup string) []Token {
	var tokens []Token
	emit := func(kind TokenKind, text string) {
		if text == "" {
			return
		}
		if kind == TokenText && len(tokens) > 0 && tokens[len(tokens)-1].Kind == TokenText {
			tokens[len(tokens)-1].Text += text
			return
		}
		tokens = append(tokens, Token{Kind: kind, Text: text})
	}

	i := 0
	for i < len(markup) {
		rest := markup[i:]
		if n := placeholderLen(rest); n > 0 {
			emit(TokenPlaceholder, rest[:n])
			i += n
			continue
		}
		if n := tagLen(rest); n > 0 {
			emit(TokenTag, rest[:n])
			i += n
			continue
		}

		next := strings.IndexAny(rest[1:], "{<")
		if next < 0 {
			emit(TokenText, rest)
			break
		}
		emit(TokenText, rest[:next+1])
		i += next + 1
	}
	return tokens
}

// placeholderLen returns the length of a {{...}} or {{{...}}} at the start
// of s, or 0.
func placeholderLen(s string) int {
	switch {
	case strings.HasPrefix(s, "{{{"):
		if end := strings.Index(s[3:], "}}}"); end >= 0 {
			return end + 6
		}
		fallthrough
	case strings.HasPrefix(s, "{{"):
		if end := strings.Index(s[2:], "}}"); end >= 0 {
			return end + 4
		}
	}
	return 0
}

// tagLen returns the length of an HTML tag, comment or declaration at the
// start of s, or 0. A '<' not followed by a tag name, or whose '>' comes
// after another '<', is not a tag.
func tagLen(s string) int {
	if len(s) < 2 || s[0] != '<' {
		return 0
	}
	if strings.HasPrefix(s, "<!--") {
		if end := strings.Index(s[4:], "-->"); end >= 0 {
			return end + 7
		}
		return 0
	}
	c := s[1]
	isName := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	if !isName && c != '/' && c != '!' && c != '?' {
		return 0
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return 0
	}
	if lt := strings.IndexByte(s[1:end], '<'); lt >= 0 {
		return 0
	}
	return end + 1
}
