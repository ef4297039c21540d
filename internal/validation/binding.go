package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
)

var registerOnce sync.Once

// RegisterBindings добавляет в валидатор gin теги review_status и dimension_score.
func RegisterBindings() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("review_status", validateReviewStatus)
		_ = v.RegisterValidation("dimension_score", validateDimensionScore)
	})
}

func jsonFieldName(f reflect.StructField) string {
	return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
}

// review_status принимает только статусы, которые может выставить модератор.
func validateReviewStatus(fl validator.FieldLevel) bool {
	return valueobject.ReviewStatus(fl.Field().String()).IsModerationTarget()
}

// dimension_score: 0 означает «не оценено», иначе от 1 до 5.
func validateDimensionScore(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v == 0 || (v >= MinScore && v <= MaxScore)
}

// BindingMessage переводит ошибку биндинга в сообщение для клиента.
func BindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "некорректное тело запроса"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("поле %s обязательно", field)
	case "review_status":
		return fmt.Sprintf("поле %s должно быть одним из: approved, rejected, flagged", field)
	case "dimension_score":
		return fmt.Sprintf("поле %s должно быть от %.0f до %.0f", field, MinScore, MaxScore)
	case "min", "gte":
		return fmt.Sprintf("поле %s должно быть не меньше %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("поле %s должно быть не больше %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("поле %s должно быть одним из: %s", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("поле %s должно быть UUID", field)
	default:
		return fmt.Sprintf("поле %s не прошло проверку %s", field, fe.Tag())
	}
}
