package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"feedback-portal/internal/domain"
)

// alertFeedbackLimit ограничивает длину текста отзыва в уведомлении, в символах.
const alertFeedbackLimit = 3000

// FormatFeedbackAlert готовит HTML-уведомление тренеру о новом отзыве.
func FormatFeedbackAlert(job domain.FeedbackJob, urgent bool) string {
	var b strings.Builder
	if urgent {
		b.WriteString("🚨 <b>Низкая оценка</b>\n")
	} else {
		b.WriteString("📝 <b>Новый отзыв</b>\n")
	}
	fmt.Fprintf(&b, "%s %s\n", stars(job.Rating), html.EscapeString(job.Rating))
	fmt.Fprintf(&b, "👤 %s", html.EscapeString(job.Name))
	if job.Email != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(job.Email))
	}
	b.WriteString("\n")
	if job.SubmittedAt != "" {
		fmt.Fprintf(&b, "🕒 %s\n", html.EscapeString(job.SubmittedAt))
	}
	if text := strings.TrimSpace(job.Feedback); text != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", html.EscapeString(truncate(text, alertFeedbackLimit)))
	}
	return strings.TrimSpace(b.String())
}

// FormatDailyReport готовит сводку по отзывам за день.
func FormatDailyReport(date time.Time, view domain.DashboardView, today []domain.FeedbackRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Отзывы за %s</b>\n\n", date.Format("02.01.2006"))
	fmt.Fprintf(&b, "Всего отзывов: %d\n", view.Total)
	fmt.Fprintf(&b, "Средняя оценка: %.1f\n", view.Average)
	fmt.Fprintf(&b, "Новых за день: %d\n\n", len(today))

	for i := len(view.Distribution) - 1; i >= 0; i-- {
		share := view.Distribution[i]
		fmt.Fprintf(&b, "%s %d\n", share.Label, share.Count)
	}

	if len(today) > 0 {
		b.WriteString("\n<b>Сегодня</b>\n")
		for _, rec := range today {
			line := fmt.Sprintf("• %s %s: %s", html.EscapeString(rec.Rating), html.EscapeString(rec.Name), html.EscapeString(oneLine(rec.Feedback)))
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// DailyReportParts готовит сводку по отзывам, разбитую на сообщения Telegram.
func DailyReportParts(date time.Time, view domain.DashboardView, today []domain.FeedbackRecord) []string {
	return SplitMessage(FormatDailyReport(date, view, today))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func stars(rating string) string {
	switch rating {
	case "1", "2", "3", "4", "5":
		n := int(rating[0] - '0')
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	default:
		return "☆☆☆☆☆"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
