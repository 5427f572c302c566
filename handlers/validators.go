package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/pipeline"
)

// RegisterValidators adds the domain tags to gin's validator. Call once at startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	for tag, fn := range map[string]validator.Func{
		"role":           validateRole,
		"tier":           validateTier,
		"jobstatus":      validateJobStatus,
		"referralstatus": validateReferralStatus,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateTier(fl validator.FieldLevel) bool {
	return models.TierCode(fl.Field().String()).Valid()
}

func validateJobStatus(fl validator.FieldLevel) bool {
	return models.JobStatus(fl.Field().String()).Valid()
}

func validateReferralStatus(fl validator.FieldLevel) bool {
	return pipeline.Valid(models.ReferralStatus(fl.Field().String()))
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request payload"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min", "max", "gte", "lte", "gtefield":
			msgs = append(msgs, fmt.Sprintf("%s is out of range", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
