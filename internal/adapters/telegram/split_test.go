package telegram

import (
	"regexp"
	"strings"
	"testing"

	"feedback-portal/internal/domain"
)

var knownEntity = regexp.MustCompile(`&(amp|lt|gt|quot|#39|#34);`)

func assertWellFormedPart(t *testing.T, i int, part string, limit int) {
	t.Helper()
	if n := runeLen(part); n > limit {
		t.Fatalf("часть %d длиннее лимита: %d", i, n)
	}
	for _, tag := range []string{"b", "i"} {
		if opened, closed := strings.Count(part, "<"+tag+">"), strings.Count(part, "</"+tag+">"); opened != closed {
			t.Fatalf("часть %d: <%s>=%d </%s>=%d\n%s", i, tag, opened, tag, closed, part)
		}
	}
	if strings.Contains(knownEntity.ReplaceAllString(part, ""), "&") {
		t.Fatalf("часть %d содержит разрезанную сущность: %q", i, part)
	}
}

func TestSplitMessageKeepsLinesTogether(t *testing.T) {
	text := strings.Repeat("a", 3000) + "\n\n" + strings.Repeat("b", 2000) + "\n" + strings.Repeat("c", 500)

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	for i, part := range parts {
		if n := runeLen(part); n > messageLimit {
			t.Fatalf("часть %d длиннее лимита: %d", i, n)
		}
	}
	if parts[0] != strings.Repeat("a", 3000) {
		t.Fatalf("неожиданная первая часть")
	}
	if parts[1] != strings.Repeat("b", 2000)+"\n"+strings.Repeat("c", 500) {
		t.Fatalf("неожиданная вторая часть")
	}
}

func TestSplitMessageCutsLongLine(t *testing.T) {
	parts := splitLimit("ёёёёёёё\nab", 3)
	expected := []string{"ёёё", "ёёё", "ё", "ab"}
	if len(parts) != len(expected) {
		t.Fatalf("ожидали %v, получили %v", expected, parts)
	}
	for i := range expected {
		if parts[i] != expected[i] {
			t.Fatalf("часть %d: ожидали %q, получили %q", i, expected[i], parts[i])
		}
	}
}

func TestSplitMessageShortAndEmpty(t *testing.T) {
	if parts := SplitMessage("hello world"); len(parts) != 1 || parts[0] != "hello world" {
		t.Fatalf("неожиданный результат: %v", parts)
	}
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("пустой текст не должен давать частей, получили %d", len(parts))
	}
}

func TestSplitMessageKeepsTagsAndEntities(t *testing.T) {
	text := "<b>Отчёт</b>\n<i>" + strings.Repeat("x &amp; y ", 20) + "</i>"

	parts := splitLimit(text, 30)
	if len(parts) < 3 {
		t.Fatalf("ожидали несколько частей, получили %v", parts)
	}
	if parts[0] != "<b>Отчёт</b>" {
		t.Fatalf("заголовок должен остаться целым: %q", parts[0])
	}
	for i, part := range parts {
		assertWellFormedPart(t, i, part, 30)
	}
}

func TestLongAlertSplitsIntoValidHTML(t *testing.T) {
	job := domain.FeedbackJob{ID: "1", Name: "Ann", Rating: "1", Feedback: strings.Repeat("a & b ", 900)}
	text := FormatFeedbackAlert(job, true)
	if !strings.Contains(text, "…</i>") {
		t.Fatalf("длинный отзыв должен обрезаться")
	}

	parts := SplitMessage(text)
	if len(parts) < 2 {
		t.Fatalf("ожидали разбиение на части, получили %d", len(parts))
	}
	for i, part := range parts {
		assertWellFormedPart(t, i, part, messageLimit)
	}
}
