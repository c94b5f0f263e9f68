package telegram

import (
	"strings"
	"unicode/utf8"
)

// messageLimit задаёт максимальную длину сообщения Telegram в символах.
const messageLimit = 4096

// maxEntityLen ограничивает длину HTML-сущности вида &amp; или &#39;.
const maxEntityLen = 10

// SplitMessage делит HTML-текст на части не длиннее лимита Telegram.
// Строки не разрываются, пока одна строка сама не превышает лимит. Теги,
// открытые на месте разреза, закрываются в конце части и открываются заново
// в следующей, сущности не разрезаются.
func SplitMessage(text string) []string {
	return splitLimit(text, messageLimit)
}

func splitLimit(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= limit {
		return []string{text}
	}

	var (
		parts      []string
		cur        []rune
		open       []string
		hasContent bool
	)
	flush := func() {
		if hasContent {
			chunk := strings.Trim(string(cur), "\n") + closingTags(open)
			parts = append(parts, chunk)
		}
		cur = append(cur[:0], []rune(strings.Join(open, ""))...)
		hasContent = false
	}
	fits := func(piece string, after []string) bool {
		return len(cur)+runeLen(piece)+runeLen(closingTags(after)) <= limit
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		tokens := htmlTokens(line)
		after := openTagsAfter(open, tokens)
		if !fits(line, after) {
			flush()
		}
		if fits(line, after) {
			cur = append(cur, []rune(line)...)
			open = after
			hasContent = hasContent || strings.TrimSpace(line) != ""
			continue
		}
		for _, tok := range tokens {
			next := openTagsAfter(open, []string{tok})
			if hasContent && !fits(tok, next) {
				flush()
			}
			cur = append(cur, []rune(tok)...)
			open = next
			hasContent = hasContent || strings.TrimSpace(tok) != ""
		}
	}
	flush()
	return parts
}

// htmlTokens режет строку на теги, сущности и отдельные символы.
func htmlTokens(s string) []string {
	var out []string
	for len(s) > 0 {
		switch s[0] {
		case '<':
			if end := strings.IndexByte(s, '>'); end > 0 {
				out = append(out, s[:end+1])
				s = s[end+1:]
				continue
			}
		case '&':
			if end := strings.IndexByte(s, ';'); end > 1 && end < maxEntityLen && !strings.ContainsAny(s[1:end], " \n\t&<") {
				out = append(out, s[:end+1])
				s = s[end+1:]
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(s)
		out = append(out, s[:size])
		s = s[size:]
	}
	return out
}

// openTagsAfter возвращает стек открытых тегов после токенов, не меняя исходный.
func openTagsAfter(open []string, tokens []string) []string {
	stack := append([]string(nil), open...)
	for _, tok := range tokens {
		if len(tok) < 3 || tok[0] != '<' || tok[len(tok)-1] != '>' {
			continue
		}
		switch {
		case strings.HasPrefix(tok, "</"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case strings.HasSuffix(tok, "/>"):
		default:
			stack = append(stack, tok)
		}
	}
	return stack
}

func closingTags(open []string) string {
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(tagName(open[i]))
		b.WriteString(">")
	}
	return b.String()
}

func tagName(tag string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	return name
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
