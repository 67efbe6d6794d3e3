package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"spazatrack/internal/apierror"
	"spazatrack/internal/apperr"
	"spazatrack/internal/authz"
	"spazatrack/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid JSON body"))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "max", "gt", "gte", "lt", "lte":
		return "failed " + fe.Tag() + "=" + fe.Param()
	}
	return "is invalid"
}

// pathID parses the :id route parameter. Malformed ids are reported as not
// found so that probing ids reveals nothing about other shops.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// fail hands err to middleware.ErrorHandler, which renders the envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func principal(c *gin.Context) *authz.Principal { return middleware.GetPrincipal(c) }
