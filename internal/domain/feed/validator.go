package feed

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrMalformedDocument = errors.New("feed: malformed document")
	ErrSchemaViolation   = errors.New("feed: document violates feed schema")
)

// SchemaValidator checks a serialized feed document
type SchemaValidator interface {
	Validate(doc []byte) error
}

var (
	itemIDPattern = regexp.MustCompile(`^[_\-0-9a-zA-Z]+$`)
	vatPattern    = regexp.MustCompile(`^\d{1,2}([.,]\d{1,2})?%$`)
)

// Validator is the SchemaValidator backed by struct tag rules
type Validator struct {
	validate *validator.Validate
}

var _ SchemaValidator = (*Validator)(nil)

// NewValidator creates a Validator with the feed rules registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("xml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("itemid", func(fl validator.FieldLevel) bool {
		return itemIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("vat", func(fl validator.FieldLevel) bool {
		return vatPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("courier", func(fl validator.FieldLevel) bool {
		return CourierID(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v}
}

// Validate re-decodes the document and checks every item.
// Violations are reported together in one error wrapping ErrSchemaViolation.
func (v *Validator) Validate(doc []byte) error {
	shop, err := Unmarshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var problems []string
	seen := make(map[string]int, len(shop.Items))
	for i, item := range shop.Items {
		problems = append(problems, v.itemProblems(i, item)...)
		if first, dup := seen[item.ItemID]; dup && item.ItemID != "" {
			problems = append(problems, fmt.Sprintf("SHOPITEM[%d] ITEM_ID: duplicate of SHOPITEM[%d]", i, first))
		} else {
			seen[item.ItemID] = i
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateItem checks a single item before it is added to a document
func (v *Validator) ValidateItem(item ShopItem) error {
	if problems := v.itemProblems(0, item); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
	}
	return nil
}

func (v *Validator) itemProblems(index int, item ShopItem) []string {
	err := v.validate.Struct(item)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{fmt.Sprintf("SHOPITEM[%d]: %v", index, err)}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("SHOPITEM[%d] %s: %s", index, fieldPath(fe), describe(fe)))
	}
	return problems
}

// fieldPath drops the struct name prefix: "ShopItem.DELIVERY[0].DELIVERY_ID" -> "DELIVERY[0].DELIVERY_ID"
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "exceeds " + fe.Param()
	case "url":
		return "is not an absolute URL"
	case "itemid":
		return "contains characters outside [_-0-9a-zA-Z]"
	case "vat":
		return "is not a percentage"
	case "courier":
		return fmt.Sprintf("unknown courier %q", fe.Value())
	case "gte":
		return "must not be negative"
	default:
		return "failed " + fe.Tag()
	}
}
