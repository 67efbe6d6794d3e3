package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"spazatrack/internal/apperr"
	"spazatrack/internal/dto"
	"spazatrack/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field limits mirror the column sizes in internal/model.
const (
	maxUsernameLen    = 50
	minUsernameLen    = 3
	maxEmailLen       = 100
	maxNameLen        = 100
	minPasswordLen    = 4
	maxPasswordLen    = 72 // bcrypt ignores anything longer
	maxShopNameLen    = 100
	maxProductNameLen = 100
)

var validate = validator.New()

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// normalizeRegister trims input and applies the default role.
func normalizeRegister(req dto.RegisterRequest) dto.RegisterRequest {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.ShopName = strings.TrimSpace(req.ShopName)
	if req.Role == "" {
		req.Role = model.RoleEmployee
	}
	return req
}

func validateRegister(req dto.RegisterRequest) error {
	var v apperr.Validation
	n := runeLen(req.Username)
	v.Check(n >= minUsernameLen, "username", "must be at least 3 characters")
	v.Check(n <= maxUsernameLen, "username", "must be at most 50 characters")
	v.Check(!strings.ContainsAny(req.Username, " \t\n"), "username", "must not contain whitespace")
	v.Check(req.Email != "", "email", "is required")
	v.Check(runeLen(req.Email) <= maxEmailLen, "email", "must be at most 100 characters")
	v.Check(validate.Var(req.Email, "email") == nil, "email", "must be a valid email address")
	v.Check(len(req.Password) >= minPasswordLen, "password", "must be at least 4 characters")
	v.Check(len(req.Password) <= maxPasswordLen, "password", "must be at most 72 bytes")
	v.Check(runeLen(req.FullName) <= maxNameLen, "full_name", "must be at most 100 characters")
	v.Check(model.ValidRole(req.Role), "role", "must be one of admin, manager, employee")
	v.Check(runeLen(req.ShopName) <= maxShopNameLen, "shop_name", "must be at most 100 characters")
	return v.Err()
}

func validateProduct(req dto.CreateProductRequest) error {
	var v apperr.Validation
	name := strings.TrimSpace(req.Name)
	v.Check(name != "", "name", "must not be empty")
	v.Check(runeLen(name) <= maxProductNameLen, "name", "must be at most 100 characters")
	checkPrice(&v, "cost_price", req.CostPrice)
	checkPrice(&v, "selling_price", req.SellingPrice)
	v.Check(req.Quantity >= 0, "quantity", "must not be negative")
	return v.Err()
}

func checkPrice(v *apperr.Validation, field string, d decimal.Decimal) {
	v.Check(d.GreaterThan(decimal.Zero), field, "must be greater than 0")
	v.Check(d.Equal(d.Round(model.MoneyPlaces)), field, "must have at most 2 decimal places")
	v.Check(fitsMoney(d), field, "must be at most "+model.MaxMoney.String())
}

func fitsMoney(d decimal.Decimal) bool { return d.Abs().LessThanOrEqual(model.MaxMoney) }

// validateSaleAmounts rejects a sale whose totals would overflow the money columns.
func validateSaleAmounts(total, profit decimal.Decimal) error {
	var v apperr.Validation
	v.Check(fitsMoney(total) && fitsMoney(profit), "quantity_sold", "sale amount exceeds "+model.MaxMoney.String())
	return v.Err()
}

func validateQuantity(q int) error {
	var v apperr.Validation
	v.Check(q >= 0, "quantity", "must not be negative")
	return v.Err()
}

func parseSaleRequest(req dto.RecordSaleRequest) (uuid.UUID, error) {
	var v apperr.Validation
	id, err := uuid.Parse(req.ProductID)
	v.Check(err == nil, "product_id", "must be a valid id")
	v.Check(req.QuantitySold > 0, "quantity_sold", "must be greater than 0")
	return id, v.Err()
}

// validateDateKey accepts exactly the YYYY-MM-DD form of a real calendar day.
func validateDateKey(key string) error {
	var v apperr.Validation
	t, err := time.Parse(model.DateKeyLayout, key)
	v.Check(err == nil && t.Format(model.DateKeyLayout) == key, "date", "must be a date in YYYY-MM-DD format")
	return v.Err()
}
