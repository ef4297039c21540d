package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/freelance-reviews/internal/models"
)

// Константы валидации
const (
	MinScore                = 1.0
	MaxScore                = 5.0
	DefaultMaxComment       = 2000
	MaxCategoryLength       = 100
	MaxReportReasonLength   = 500
	MaxModerationNoteLength = 1000
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateScore проверяет оценку по измерению. Необязательное измерение может быть 0.
func ValidateScore(dim models.Dimension, score float64, required bool) error {
	if score == 0 && !required {
		return nil
	}
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("оценка %s должна быть от %.0f до %.0f", dim, MinScore, MaxScore)
	}
	return nil
}

// ValidateDimensionScores проверяет все измерения; overall обязателен.
func ValidateDimensionScores(scores models.DimensionScores) error {
	for _, dim := range models.Dimensions {
		if err := ValidateScore(dim, scores.Get(dim), dim == models.DimensionOverall); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeComment обрезает пробелы и проверяет длину комментария.
func NormalizeComment(comment string, maxLength int) (string, error) {
	comment = strings.TrimSpace(comment)
	if maxLength <= 0 {
		maxLength = DefaultMaxComment
	}
	if err := ValidateLength("комментарий", comment, 0, maxLength); err != nil {
		return "", err
	}
	return comment, nil
}

// NormalizeCategory приводит категорию работы к нижнему регистру.
func NormalizeCategory(category string) (string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if err := ValidateLength("категория", category, 0, MaxCategoryLength); err != nil {
		return "", err
	}
	return category, nil
}

// NormalizeRequiredText проверяет обязательный текст (ответ, причина жалобы).
func NormalizeRequiredText(fieldName, value string, maxLength int) (string, error) {
	value = strings.TrimSpace(value)
	if err := ValidateNonEmpty(fieldName, value); err != nil {
		return "", err
	}
	if err := ValidateLength(fieldName, value, 0, maxLength); err != nil {
		return "", err
	}
	return value, nil
}
