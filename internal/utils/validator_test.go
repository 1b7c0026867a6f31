// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationInput struct {
	Username  string `validate:"required,username"`
	Password  string `validate:"required,strong_password"`
	Specialty string `validate:"required,specialty"`
}

func TestValidateStructAcceptsValidInput(t *testing.T) {
	input := registrationInput{
		Username:  "amadou.diallo",
		Password:  "Secure1Pass!",
		Specialty: "Médecine Générale",
	}

	assert.NoError(t, ValidateStruct(&input))
}

func TestStrongPasswordRules(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Secure1Pass!", true},
		{"short1A!", true},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoNumbers!", false},
		{"NoSpecial1A", false},
		{"Sh1!", false},
	}

	for _, tt := range tests {
		input := registrationInput{
			Username:  "validuser",
			Password:  tt.password,
			Specialty: "Cardiology",
		}
		err := ValidateStruct(&input)
		if tt.valid {
			assert.NoError(t, err, "password %q should be accepted", tt.password)
		} else {
			assert.Error(t, err, "password %q should be refused", tt.password)
		}
	}
}

func TestUsernameRules(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"intake.agent", true},
		{"user_42", true},
		{"ab", false},
		{"has space", false},
		{"bad-dash", false},
	}

	for _, tt := range tests {
		input := registrationInput{
			Username:  tt.username,
			Password:  "Secure1Pass!",
			Specialty: "Cardiology",
		}
		err := ValidateStruct(&input)
		if tt.valid {
			assert.NoError(t, err, "username %q should be accepted", tt.username)
		} else {
			assert.Error(t, err, "username %q should be refused", tt.username)
		}
	}
}

func TestSpecialtyRules(t *testing.T) {
	tests := []struct {
		specialty string
		valid     bool
	}{
		{"Cardiology", true},
		{"Chirurgie Cardio-Vasculaire", true},
		{"Pédiatrie", true},
		{"X", false},
		{"Radiology2", false},
	}

	for _, tt := range tests {
		input := registrationInput{
			Username:  "validuser",
			Password:  "Secure1Pass!",
			Specialty: tt.specialty,
		}
		err := ValidateStruct(&input)
		if tt.valid {
			assert.NoError(t, err, "specialty %q should be accepted", tt.specialty)
		} else {
			assert.Error(t, err, "specialty %q should be refused", tt.specialty)
		}
	}
}

func TestGetValidationErrorsDescribesEachField(t *testing.T) {
	input := registrationInput{}

	err := ValidateStruct(&input)
	require.Error(t, err)

	errs := GetValidationErrors(err)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, "required", e.Tag)
		assert.NotEmpty(t, e.Message)
	}
}
