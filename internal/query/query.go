// Package query — движок выборки каталога: фильтр по категории,
// поиск по подстроке и сортировка. Пакет чистый, без побочных эффектов.
package query

import (
	"sort"
	"strings"

	"StudyVault/internal/apperr"
	"StudyVault/internal/model"

	"golang.org/x/text/cases"
)

// SortBy — ключ сортировки списка заметок.
type SortBy string

const (
	SortDateDesc SortBy = "date_desc"
	SortDateAsc  SortBy = "date_asc"
	SortNameAsc  SortBy = "name_asc"
	SortNameDesc SortBy = "name_desc"
	SortCategory SortBy = "category"
	SortCustom   SortBy = "custom"
)

// AllCategories — значение фильтра, эквивалентное отсутствию фильтра.
const AllCategories = "All"

// Criteria описывает запрос на листинг.
type Criteria struct {
	Category string
	Search   string
	SortBy   SortBy
}

// ParseSort проверяет значение sort_by из запроса. Пустое значение — date_desc.
func ParseSort(s string) (SortBy, error) {
	switch v := SortBy(strings.TrimSpace(s)); v {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortNameAsc, SortNameDesc, SortCategory, SortCustom:
		return v, nil
	default:
		return "", apperr.Validation("unknown sort_by %q", s)
	}
}

// Apply фильтрует и сортирует копию notes. Входной срез не изменяется.
// Неизвестный ключ сортировки трактуется как date_desc.
func Apply(notes []model.Note, c Criteria) []model.Note {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(c.Search))
	byCategory := c.Category != "" && c.Category != AllCategories

	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if byCategory && n.Category != c.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(folder.String(n.Title), needle) &&
			!strings.Contains(folder.String(n.Description), needle) {
			continue
		}
		out = append(out, n)
	}

	less := lessFunc(c.SortBy)
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// lessFunc возвращает строгий полный порядок: при равенстве ключей — id по возрастанию.
func lessFunc(by SortBy) func(a, b *model.Note) bool {
	switch by {
	case SortDateAsc:
		return func(a, b *model.Note) bool {
			if !a.UploadDate.Equal(b.UploadDate) {
				return a.UploadDate.Before(b.UploadDate)
			}
			return a.ID < b.ID
		}
	case SortNameAsc:
		return func(a, b *model.Note) bool {
			if c := compareFold(a.Title, b.Title); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		}
	case SortNameDesc:
		return func(a, b *model.Note) bool {
			if c := compareFold(a.Title, b.Title); c != 0 {
				return c > 0
			}
			return a.ID < b.ID
		}
	case SortCategory:
		return func(a, b *model.Note) bool {
			if c := compareFold(a.Category, b.Category); c != 0 {
				return c < 0
			}
			if c := compareFold(a.Title, b.Title); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		}
	case SortCustom:
		return func(a, b *model.Note) bool {
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			return a.ID < b.ID
		}
	default: // SortDateDesc
		return func(a, b *model.Note) bool {
			if !a.UploadDate.Equal(b.UploadDate) {
				return a.UploadDate.After(b.UploadDate)
			}
			return a.ID < b.ID
		}
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
