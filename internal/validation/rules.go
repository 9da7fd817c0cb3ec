// Package validation holds the jellydator/validation rules shared by DTOs, domain constructors
// and configuration.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/esign/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// subjectTextRegex is the character set accepted in certificate subject attributes.
	subjectTextRegex = regexp.MustCompile(`^[A-Za-z0-9 @._-]*$`)

	countryCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// WrapValidationError turns a validation failure into ErrInvalidInput so handlers answer 422.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordStrength is the policy for passwords that protect exported PKCS#12 bundles.
// Length counts runes, not bytes.
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

type characterClass struct {
	required bool
	code     string
	name     string
	match    func(rune) bool
}

func isSpecial(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Validate implements validation.Rule.
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}
	if utf8.RuneCountInString(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	classes := []characterClass{
		{p.RequireUpper, "uppercase", "uppercase letter", unicode.IsUpper},
		{p.RequireLower, "lowercase", "lowercase letter", unicode.IsLower},
		{p.RequireNumber, "number", "number", unicode.IsNumber},
		{p.RequireSpecial, "special", "special character", isSpecial},
	}
	for _, class := range classes {
		if class.required && !strings.ContainsFunc(s, class.match) {
			return validation.NewError(
				"validation_password_"+class.code,
				"password must contain at least one "+class.name,
			)
		}
	}
	return nil
}

// Email accepts a single address without display name.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NoWhitespace rejects leading or trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank rejects values made only of whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// SubjectText restricts a certificate subject attribute to letters, digits, space and @._-
// so values can never carry a subject separator or an option into a tool invocation.
var SubjectText = validation.NewStringRuleWithError(
	func(s string) bool {
		return subjectTextRegex.MatchString(s)
	},
	validation.NewError(
		"validation_subject_text",
		"must contain only letters, digits, spaces and the characters @ . _ -",
	),
)

// CountryCode validates a two letter ISO 3166 country code.
var CountryCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return countryCodeRegex.MatchString(s)
	},
	validation.NewError("validation_country_code", "must be a two letter country code"),
)
