package domain

import "strings"

// FeedbackRecord представляет отзыв слушателя, полученный из внешнего API.
type FeedbackRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Rating      string `json:"rating"`
	Feedback    string `json:"feedback"`
	SubmittedAt string `json:"submittedAt"`
}

// RatingBuckets перечисляет допустимые значения оценки в порядке возрастания.
var RatingBuckets = [...]string{"1", "2", "3", "4", "5"}

// IsRatingBucket сообщает, является ли значение одной из пяти оценок.
func IsRatingBucket(rating string) bool {
	for _, bucket := range RatingBuckets {
		if bucket == rating {
			return true
		}
	}
	return false
}

// SortKey задаёт порядок сортировки на дашборде.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByName   SortKey = "name"
	SortByRating SortKey = "rating"
)

// ParseSortKey приводит ввод к SortKey. Неизвестные значения означают сортировку по дате.
func ParseSortKey(raw string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortByName:
		return SortByName
	case SortByRating:
		return SortByRating
	default:
		return SortByDate
	}
}

// ViewState описывает параметры, которые тренер меняет на дашборде.
// Пустые строки означают отсутствие ограничения.
type ViewState struct {
	RatingFilter string  `json:"rating"`
	SearchTerm   string  `json:"q"`
	SortKey      SortKey `json:"sort"`
}

// ParseViewState собирает ViewState из сырых параметров запроса.
func ParseViewState(rating, search, sort string) ViewState {
	return ViewState{
		RatingFilter: strings.TrimSpace(rating),
		SearchTerm:   search,
		SortKey:      ParseSortKey(sort),
	}
}

// LoadState описывает состояние загрузки дашборда.
type LoadState string

const (
	LoadStateLoading LoadState = "loading"
	LoadStateError   LoadState = "error"
	LoadStateReady   LoadState = "ready"
)

// RatingShare описывает один сегмент диаграммы распределения оценок.
type RatingShare struct {
	Rating int    `json:"rating"`
	Label  string `json:"name"`
	Count  int    `json:"value"`
}

// DashboardView содержит всё, что нужно для отрисовки дашборда тренера.
type DashboardView struct {
	State        LoadState        `json:"state"`
	Params       ViewState        `json:"params"`
	Items        []FeedbackRecord `json:"items"`
	Total        int              `json:"total"`
	Average      float64          `json:"average"`
	Histogram    map[string]int   `json:"histogram"`
	Distribution []RatingShare    `json:"distribution"`
}

// FeedbackSubmission содержит данные формы отзыва.
type FeedbackSubmission struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Rating      string  `json:"rating"`
	Feedback    string  `json:"feedback"`
	SubmittedAt string  `json:"submittedAt"`
	StudentID   *string `json:"studentId"`
}
