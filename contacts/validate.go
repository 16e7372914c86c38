package contacts

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ValidationError maps field names to their problems.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return "invalid contact: " + e.Fields.Error()
}

// Input is the full set of contact fields accepted on create.
type Input struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
}

// Patch carries the fields to change on update; nil fields are kept.
type Patch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Birthday = strings.TrimSpace(in.Birthday)
}

// Validate normalizes in and checks every field.
func (in *Input) Validate() error {
	in.normalize()
	err := validation.ValidateStruct(in,
		validation.Field(&in.FirstName, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.LastName, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 180), is.Email),
		validation.Field(&in.Phone, validation.Required, validation.Length(3, 80)),
		validation.Field(&in.Birthday, validation.Required, validation.Date(BirthdayLayout)),
	)
	return asValidationError(err)
}

// Apply returns c with p's fields applied and validated.
func (p Patch) Apply(c Contact) (Contact, error) {
	in := Input{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Birthday:  c.Birthday,
	}
	if p.FirstName != nil {
		in.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		in.LastName = *p.LastName
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
	if p.Birthday != nil {
		in.Birthday = *p.Birthday
	}
	if err := in.Validate(); err != nil {
		return Contact{}, err
	}
	c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday = in.FirstName, in.LastName, in.Email, in.Phone, in.Birthday
	return c, nil
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil && p.Birthday == nil
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}
