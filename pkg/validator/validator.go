// Package validator 业务字段校验规则，注册到 gin 的 binding 引擎
package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"exam-bank/backend/internal/model"
)

// Register 注册自定义校验规则：question_type / question_status / review_status
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin binding 引擎不是 validator/v10")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定的 Validate 实例上注册规则
func RegisterOn(v *validator.Validate) error {
	rules := map[string]func(string) bool{
		"question_type":   model.IsValidQuestionType,
		"question_status": model.IsValidStatus,
		"review_status":   model.IsValidReviewStatus,
	}
	for tag, check := range rules {
		check := check
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("注册校验规则 %s 失败: %w", tag, err)
		}
	}
	return nil
}
