package auth

import (
	"strings"

	"chat-rooms/domain"
	"chat-rooms/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,min=3,max=20"`
	Password string `validate:"required,min=6"`
}

// ValidateRegister applies the registration rules: username between 3 and 20
// characters with no surrounding whitespace, SYSTEM reserved, password at
// least 6 characters.
func ValidateRegister(req RegisterRequest) error {
	if strings.TrimSpace(req.Username) != req.Username {
		return errors.Validation(errors.CodeInvalidData, "Username must not start or end with whitespace")
	}
	if err := validate.Struct(req); err != nil {
		return errors.Validation(errors.CodeInvalidData, "Username must be 3-20 characters and password at least 6")
	}
	if domain.IsReservedUsername(req.Username) {
		return errors.Validation(errors.CodeUsernameReserved, "This username is reserved")
	}
	return nil
}
