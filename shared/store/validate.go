package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// CreateInput is what an admin supplies to assign a new member
type CreateInput struct {
	FullName      string              `json:"full_name" form:"full_name" validate:"required,min=2,max=100"`
	Gender        models.Gender       `json:"gender" form:"gender" validate:"required,oneof=male female other"`
	Age           int                 `json:"age" form:"age" validate:"gte=18,lte=120"`
	PhoneNumber   string              `json:"phone_number" form:"phone_number" validate:"required,len=10,number"`
	Email         string              `json:"email" form:"email" validate:"required,email"`
	ParentsNumber string              `json:"parents_number" form:"parents_number" validate:"required,len=10,number"`
	Address       string              `json:"address" form:"address" validate:"required"`
	Occupation    string              `json:"occupation" form:"occupation" validate:"required"`
	Amount        int64               `json:"amount" form:"amount" validate:"gt=0"`
	JoiningDate   *time.Time          `json:"joining_date,omitempty" form:"joining_date" time_format:"2006-01-02"`
	RoomNumber    string              `json:"room_number" form:"room_number" validate:"required"`
	RoomType      inventory.ShareType `json:"room_type" form:"room_type" validate:"required"`
	ProfileAsset  string              `json:"-" form:"-"`
}

// UpdatePatch changes the fields that are non-nil
type UpdatePatch struct {
	FullName      *string              `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Gender        *models.Gender       `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Age           *int                 `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	PhoneNumber   *string              `json:"phone_number,omitempty" validate:"omitempty,len=10,number"`
	Email         *string              `json:"email,omitempty" validate:"omitempty,email"`
	ParentsNumber *string              `json:"parents_number,omitempty" validate:"omitempty,len=10,number"`
	Address       *string              `json:"address,omitempty" validate:"omitempty,min=1"`
	Occupation    *string              `json:"occupation,omitempty" validate:"omitempty,min=1"`
	Amount        *int64               `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Status        *models.MemberStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	JoiningDate   *time.Time           `json:"joining_date,omitempty"`
	RoomNumber    *string              `json:"room_number,omitempty" validate:"omitempty,min=1"`
	RoomType      *inventory.ShareType `json:"room_type,omitempty"`
	ProfileAsset  *string              `json:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs the validate tags and reports failures per json field
func checkStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s digits", fe.Param())
	case "number":
		return "must contain only digits"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
