// Package validate normalizes and checks public order input.
package validate

import (
	"encoding/json"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

const (
	MsgMissingFields   = "Missing required fields: product_id, customer_name, customer_phone, customer_address"
	MsgInvalidQuantity = "Quantity must be a positive integer"
	MsgNameTooLong     = "Customer name must be 100 characters or less"
	MsgAddressTooLong  = "Customer address must be 500 characters or less"
	MsgInvalidPhone    = "Invalid phone number. Must be 10 digits starting with 05, 06, or 07"
)

// MaxQuantity is the largest quantity the orders table can hold.
const MaxQuantity = math.MaxInt32

var (
	phoneRe        = regexp.MustCompile(`^(05|06|07)\d{8}$`)
	phoneSeparator = regexp.MustCompile(`[\s\-.()]`)

	strict  = bluemonday.StrictPolicy()
	checker = validator.New()
)

func init() {
	checker.RegisterValidation("dz_phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
}

// OrderInput is the cleaned form of a public order request.
type OrderInput struct {
	ProductID       string `validate:"required"`
	SessionID       string
	CustomerName    string `validate:"required,max=100"`
	CustomerPhone   string `validate:"required,dz_phone"`
	CustomerAddress string `validate:"required,max=500"`
	Quantity        int
}

// NormalizePhone strips separators and rewrites the +213/213 country prefix to a local 0.
func NormalizePhone(raw string) string {
	p := phoneSeparator.ReplaceAllString(raw, "")
	switch {
	case strings.HasPrefix(p, "+213"):
		p = "0" + p[len("+213"):]
	case strings.HasPrefix(p, "213"):
		p = "0" + p[len("213"):]
	}
	return p
}

// ValidPhone reports whether a normalized phone is a local mobile number.
func ValidPhone(p string) bool {
	return phoneRe.MatchString(p)
}

// Sanitize removes all markup and trims surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Order cleans req and checks it. The first failing rule wins, in this order:
// required fields, quantity, name length, address length, phone format.
func Order(req *models.CreateOrderRequest) (*OrderInput, error) {
	in := &OrderInput{
		ProductID:       strings.TrimSpace(req.ProductID),
		CustomerName:    Sanitize(req.CustomerName),
		CustomerPhone:   NormalizePhone(req.CustomerPhone),
		CustomerAddress: Sanitize(req.CustomerAddress),
	}
	if req.SessionID != nil {
		in.SessionID = strings.TrimSpace(*req.SessionID)
	}

	failed := map[string]string{}
	if err := checker.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		for _, fe := range verrs {
			failed[fe.Field()] = fe.Tag()
		}
	}

	for _, tag := range failed {
		if tag == "required" {
			return nil, errs.Validation(MsgMissingFields)
		}
	}

	qty, ok := parseQuantity(req.Quantity)
	if !ok {
		return nil, errs.Validation(MsgInvalidQuantity)
	}
	in.Quantity = qty

	if _, bad := failed["CustomerName"]; bad {
		return nil, errs.Validation(MsgNameTooLong)
	}
	if _, bad := failed["CustomerAddress"]; bad {
		return nil, errs.Validation(MsgAddressTooLong)
	}
	if _, bad := failed["CustomerPhone"]; bad {
		return nil, errs.Validation(MsgInvalidPhone)
	}
	return in, nil
}

// parseQuantity accepts integral JSON numbers such as 3 or 3.0. Absent means 1.
func parseQuantity(n *json.Number) (int, bool) {
	if n == nil {
		return 1, true
	}
	if q, err := strconv.Atoi(n.String()); err == nil {
		return q, q >= 1 && q <= MaxQuantity
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > MaxQuantity {
		return 0, false
	}
	return int(f), true
}
