package handlers

import (
	"reflect"
	"strings"
	"time"

	"home-services-api/services"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators names fields by their json tag in validation errors and
// adds the slot_date rule. Safe to call more than once.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("slot_date", validSlotDate)
}

// validSlotDate accepts YYYY-MM-DD dates from today onwards.
func validSlotDate(fl validator.FieldLevel) bool {
	day, err := time.ParseInLocation(services.DateLayout, fl.Field().String(), time.Local)
	if err != nil {
		return false
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return !day.Before(today)
}
