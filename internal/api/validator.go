package api

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する。
// フィールド名はJSONタグ名で報告する
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"request": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

// ValidationError はフィールドごとの入力エラー
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "入力値が不正です: " + strings.Join(keys, ", ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須です"
	case "gt":
		return fe.Param() + "より大きい値を指定してください"
	case "gte":
		return fe.Param() + "以上の値を指定してください"
	case "email":
		return "メールアドレスの形式が不正です"
	case "datetime":
		return fe.Param() + " 形式で指定してください"
	case "max":
		return fe.Param() + "文字以内で指定してください"
	default:
		return fe.Tag() + " を満たしていません"
	}
}
