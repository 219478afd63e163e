package dtos

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var participantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:@-]{0,127}$`)

var registerOnce sync.Once

// ValidParticipantID reports whether id is an acceptable participant identifier.
func ValidParticipantID(id string) bool {
	return participantIDPattern.MatchString(id)
}

// RegisterValidators adds the custom binding rules to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("participantid", func(fl validator.FieldLevel) bool {
				return ValidParticipantID(fl.Field().String())
			})
		}
	})
}
