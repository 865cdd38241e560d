package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/validate"
)

const (
	minAge = 18
	maxAge = 100
)

// requiredProfileFields lists the fields a profile must carry to validate.
var requiredProfileFields = []string{"fullName", "gender", "dateOfBirth", "email", "city", "state"}

// ValidateProfile checks the fixed required-field set, email shape, the
// optional pincode, and the age window. Empty or whitespace-only values
// count as missing.
//
// Age is computed by calendar-year subtraction, not full date math. That
// can admit a 17-year-old whose birthday is still ahead this year and
// reject a 101-year-old near theirs; the year-only rule is kept on purpose
// to match the profile forms users already went through.
func ValidateProfile(profile model.Profile) ValidationResult {
	errs := make(map[string]string)

	values := map[string]string{
		"fullName":    profile.FullName,
		"gender":      string(profile.Gender),
		"dateOfBirth": profile.DateOfBirth,
		"email":       profile.Email,
		"city":        profile.City,
		"state":       profile.State,
	}
	for _, field := range requiredProfileFields {
		if !validate.Required(values[field]) {
			errs[field] = "This field is required."
		}
	}

	if _, ok := errs["email"]; !ok && !validate.Email(profile.Email) {
		errs["email"] = "Please enter a valid email address."
	}

	if validate.Required(profile.Pincode) && !validate.Pincode(profile.Pincode) {
		errs["pincode"] = "Pincode must be exactly 6 digits."
	}

	if _, ok := errs["dateOfBirth"]; !ok {
		if year, err := birthYear(profile.DateOfBirth); err != nil {
			errs["dateOfBirth"] = "Please enter a valid date of birth."
		} else {
			age := time.Now().Year() - year
			if age < minAge || age > maxAge {
				errs["dateOfBirth"] = "Age must be between 18 and 100 years."
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// birthYear extracts the year from a YYYY-MM-DD (or bare YYYY) date string.
func birthYear(dob string) (int, error) {
	s := strings.TrimSpace(dob)
	if idx := strings.Index(s, "-"); idx > 0 {
		s = s[:idx]
	}
	return strconv.Atoi(s)
}
