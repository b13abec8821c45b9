package auth

import (
	"strings"

	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
)

type SignupDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (d *SignupDTO) Validate() error {
	d.Email = strings.TrimSpace(d.Email)
	d.Username = strings.TrimSpace(d.Username)

	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(30)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Email = strings.TrimSpace(d.Email)

	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
