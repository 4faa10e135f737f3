package validation

import "errors"

var (
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("please enter username and password")
	// ErrMissingFields is returned when any sign-up field is blank.
	ErrMissingFields = errors.New("please fill in all fields")
)

// SignUpFields are the values collected on the sign-up screen.
type SignUpFields struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
}

// ValidateLogin checks login credentials under the given policy.
func ValidateLogin(username, password string, policy Policy) error {
	if !IsNonEmpty(username) || !IsNonEmpty(password) {
		return ErrMissingCredentials
	}
	if policy == PolicyHardened {
		return ValidatePassword(password)
	}
	return nil
}

// ValidateSignUp checks a sign-up submission under the given policy.
func ValidateSignUp(f SignUpFields, policy Policy) error {
	for _, v := range []string{f.FirstName, f.LastName, f.Username, f.Password} {
		if !IsNonEmpty(v) {
			return ErrMissingFields
		}
	}
	if policy == PolicyHardened {
		return ValidatePassword(f.Password)
	}
	return nil
}
