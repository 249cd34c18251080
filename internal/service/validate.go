package service

import (
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/yuqie6/SchoolQuest/internal/repository"
	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// 自定义校验 tag
const (
	finiteTag           = "finite"
	dayTag              = "day"
	behaviorCategoryTag = "behavior_category"
	attendanceStatusTag = "attendance_status"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation(finiteTag, func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = v.RegisterValidation(dayTag, func(fl validator.FieldLevel) bool {
		_, _, err := repository.DayRange(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(behaviorCategoryTag, func(fl validator.FieldLevel) bool {
		return schema.BehaviorCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(attendanceStatusTag, func(fl validator.FieldLevel) bool {
		return schema.AttendanceStatus(fl.Field().String()).Valid()
	})
	return v
}

// checkInput 按第一个失败字段归类：分数 ErrInvalidScore，奖励基数 ErrInvalidAmount，其余 ErrInvalidInput
func checkInput(op string, in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return wrapError(op, ErrInvalidInput, "输入校验失败", err)
	}

	fe := fieldErrs[0]
	kind := ErrInvalidInput
	switch fe.StructField() {
	case "Score", "MaxScore":
		kind = ErrInvalidScore
	case "MaxExperience", "MaxCurrency":
		kind = ErrInvalidAmount
	}
	return newError(op, kind, "字段 %s 不满足 %s: %v", fe.StructField(), fe.Tag(), fe.Value())
}
