package validator

import (
	"log"
	"strings"

	"forum_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules adds the project specific tags to v.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'notblank': a string that is not only whitespace
	mustRegister("notblank", validateNotBlank)

	// 'is-notification-type': mention or reply
	mustRegister("is-notification-type", validateNotificationType)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateNotificationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' handles empty values
	}
	switch models.NotificationType(value) {
	case models.NotificationTypeMention, models.NotificationTypeReply:
		return true
	default:
		return false
	}
}
