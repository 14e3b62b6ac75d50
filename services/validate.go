package services

import (
	"unicode/utf8"

	"clinic-backend/models"
)

// fieldLimit pairs a value with the width of the column it is stored in.
type fieldLimit struct {
	field string
	value string
	max   int
}

func limit(field, value string, max int) fieldLimit {
	return fieldLimit{field: field, value: value, max: max}
}

func limitPtr(field string, value *string, max int) fieldLimit {
	if value == nil {
		return fieldLimit{field: field, max: max}
	}
	return limit(field, *value, max)
}

// checkLengths rejects values that would overflow their column. Widths are
// counted in characters, as varchar(n) does.
func checkLengths(limits ...fieldLimit) error {
	for _, l := range limits {
		if n := utf8.RuneCountInString(l.value); n > l.max {
			return models.Validationf("%s must be at most %d characters (got %d)", l.field, l.max, n)
		}
	}
	return nil
}
