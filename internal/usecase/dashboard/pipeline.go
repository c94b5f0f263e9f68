package dashboard

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"feedback-portal/internal/domain"
)

// Pipeline строит представление дашборда из снимка отзывов.
// Не имеет состояния, безопасен для одновременного использования.
type Pipeline struct {
	locale language.Tag
}

// NewPipeline создаёт конвейер с локалью для сортировки по имени. Некорректная локаль заменяется на английскую.
func NewPipeline(locale string) Pipeline {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Pipeline{locale: tag}
}

// Build фильтрует и сортирует записи согласно state. Средняя оценка и гистограмма
// считаются по всему снимку независимо от фильтров.
func (p Pipeline) Build(records []domain.FeedbackRecord, state domain.ViewState) domain.DashboardView {
	filtered := FilterByRating(records, state.RatingFilter)
	filtered = FilterBySearch(filtered, state.SearchTerm)
	sorted := SortRecords(filtered, state.SortKey, p.locale)

	histogram := RatingHistogram(records)
	return domain.DashboardView{
		State:        domain.LoadStateReady,
		Params:       state,
		Items:        sorted,
		Total:        len(records),
		Average:      AverageRating(records),
		Histogram:    histogram,
		Distribution: Distribution(histogram),
	}
}

// FilterByRating оставляет записи с точным совпадением оценки. Пустой фильтр пропускает всё.
func FilterByRating(records []domain.FeedbackRecord, rating string) []domain.FeedbackRecord {
	if rating == "" {
		return records
	}
	out := make([]domain.FeedbackRecord, 0, len(records))
	for _, rec := range records {
		if rec.Rating == rating {
			out = append(out, rec)
		}
	}
	return out
}

// FilterBySearch оставляет записи, у которых имя, email или текст отзыва содержат term без учёта регистра.
func FilterBySearch(records []domain.FeedbackRecord, term string) []domain.FeedbackRecord {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)
	out := make([]domain.FeedbackRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Name), needle) ||
			strings.Contains(strings.ToLower(rec.Email), needle) ||
			strings.Contains(strings.ToLower(rec.Feedback), needle) {
			out = append(out, rec)
		}
	}
	return out
}

type sortEntry struct {
	rec    domain.FeedbackRecord
	rating int
	ok     bool
	at     time.Time
}

// SortRecords возвращает отсортированную копию. Сортировка стабильная:
// при равенстве ключей сохраняется исходный порядок.
// Нечитаемые оценки и даты уходят в конец списка.
func SortRecords(records []domain.FeedbackRecord, key domain.SortKey, locale language.Tag) []domain.FeedbackRecord {
	entries := make([]sortEntry, len(records))
	for i, rec := range records {
		entries[i] = sortEntry{rec: rec}
	}

	switch key {
	case domain.SortByName:
		col := collate.New(locale)
		sort.SliceStable(entries, func(i, j int) bool {
			return col.CompareString(entries[i].rec.Name, entries[j].rec.Name) < 0
		})
	case domain.SortByRating:
		for i := range entries {
			entries[i].rating, entries[i].ok = parseRating(entries[i].rec.Rating)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.ok != b.ok {
				return a.ok
			}
			return a.ok && a.rating > b.rating
		})
	default:
		for i := range entries {
			entries[i].at, entries[i].ok = ParseTimestamp(entries[i].rec.SubmittedAt)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.ok != b.ok {
				return a.ok
			}
			return a.ok && a.at.After(b.at)
		})
	}

	out := make([]domain.FeedbackRecord, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

// AverageRating считает среднюю оценку с точностью до десятых. Нечитаемые оценки пропускаются.
func AverageRating(records []domain.FeedbackRecord) float64 {
	var sum, n int
	for _, rec := range records {
		v, ok := parseRating(rec.Rating)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

// RatingHistogram считает количество отзывов по каждой из пяти оценок.
// Значения вне "1".."5" не учитываются.
func RatingHistogram(records []domain.FeedbackRecord) map[string]int {
	hist := make(map[string]int, len(domain.RatingBuckets))
	for _, bucket := range domain.RatingBuckets {
		hist[bucket] = 0
	}
	for _, rec := range records {
		if _, ok := hist[rec.Rating]; ok {
			hist[rec.Rating]++
		}
	}
	return hist
}

// Distribution превращает гистограмму в упорядоченные сегменты диаграммы.
func Distribution(hist map[string]int) []domain.RatingShare {
	shares := make([]domain.RatingShare, 0, len(domain.RatingBuckets))
	for i, bucket := range domain.RatingBuckets {
		label := bucket + " Stars"
		if bucket == "1" {
			label = "1 Star"
		}
		shares = append(shares, domain.RatingShare{Rating: i + 1, Label: label, Count: hist[bucket]})
	}
	return shares
}

// parseRating читает ведущее целое число, как это делает браузерный parseInt.
func parseRating(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n > math.MaxInt32/10 {
			return 0, false
		}
		n = n*10 + int(s[digits]-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp разбирает время отправки отзыва в одном из известных форматов.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
