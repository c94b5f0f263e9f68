package forms

import (
	"regexp"
	"strings"

	"feedback-portal/internal/domain"
)

const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidateFeedback проверяет форму отзыва.
func ValidateFeedback(s domain.FeedbackSubmission) error {
	v := domain.Violations{}
	if strings.TrimSpace(s.Name) == "" {
		v.Add("name", "Name is required")
	}
	switch {
	case s.Email == "":
		v.Add("email", "Email is required")
	case !emailPattern.MatchString(s.Email):
		v.Add("email", "Please enter a valid email")
	}
	if strings.TrimSpace(s.Phone) == "" {
		v.Add("phone", "Phone number is required")
	}
	if !domain.IsRatingBucket(s.Rating) {
		v.Add("rating", "Please select a rating")
	}
	if strings.TrimSpace(s.Feedback) == "" {
		v.Add("feedback", "Feedback is required")
	}
	return v.Err()
}

// ValidateRegistration проверяет форму создания аккаунта.
func ValidateRegistration(r domain.Registration) error {
	v := domain.Violations{}
	if strings.TrimSpace(r.Name) == "" {
		v.Add("name", "Name is required")
	}
	switch {
	case r.Email == "":
		v.Add("email", "Email is required")
	case !emailPattern.MatchString(r.Email):
		v.Add("email", "Please enter a valid email")
	}
	switch {
	case r.Password == "":
		v.Add("password", "Password is required")
	case len(r.Password) < minPasswordLen:
		v.Add("password", "Password must be at least 6 characters")
	}
	switch {
	case r.ConfirmPassword == "":
		v.Add("confirmPassword", "Please confirm your password")
	case r.Password != r.ConfirmPassword:
		v.Add("confirmPassword", "Passwords do not match")
	}
	if _, ok := domain.ParseRole(r.Role); !ok {
		v.Add("role", "Please select your role type")
	}
	return v.Err()
}

// ValidateLogin проверяет форму входа.
func ValidateLogin(c domain.Credentials) error {
	v := domain.Violations{}
	switch {
	case c.Email == "":
		v.Add("email", "Email is required")
	case !emailPattern.MatchString(c.Email):
		v.Add("email", "Enter a valid email")
	}
	switch {
	case c.Password == "":
		v.Add("password", "Password is required")
	case len(c.Password) < minPasswordLen:
		v.Add("password", "Min 6 characters required")
	}
	return v.Err()
}
