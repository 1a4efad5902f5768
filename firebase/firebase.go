// Package firebase implements [campus.IdentityProvider] with the Firebase
// Authentication REST APIs: Identity Toolkit for email and password sign in
// and sign up, and Secure Token for refreshing ID tokens.
package firebase

import (
	"strings"
	"time"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com"
	defaultTokenURL    = "https://securetoken.googleapis.com"
	signInPath         = "/v1/accounts:signInWithPassword"
	signUpPath         = "/v1/accounts:signUp"
	refreshPath        = "/v1/token"

	providerName = "Firebase"

	// refreshWindow is how long before expiry a token is refreshed.
	refreshWindow = 5 * time.Minute
)

// SessionKey is the preference key holding the persisted session.
const SessionKey = "firebase_session"

// reasons maps Identity Toolkit error codes to text shown to the user.
var reasons = map[string]string{
	"EMAIL_NOT_FOUND":             "Incorrect email or password.",
	"INVALID_PASSWORD":            "Incorrect email or password.",
	"INVALID_LOGIN_CREDENTIALS":   "Incorrect email or password.",
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Try again later.",
	"INVALID_EMAIL":               "Enter a valid email address.",
	"MISSING_PASSWORD":            "Enter a password.",
	"MISSING_EMAIL":               "Enter an email address.",
	"USER_DISABLED":               "This account has been disabled.",
	"OPERATION_NOT_ALLOWED":       "Email sign in is not enabled for this project.",
}

// Reason returns the readable text for an Identity Toolkit error message.
// Messages may carry detail after the code, as in
// "WEAK_PASSWORD : Password should be at least 6 characters".
func Reason(message string) string {
	code, _, _ := strings.Cut(message, " ")
	if r, ok := reasons[code]; ok {
		return r
	}
	return "Authentication failed (" + code + ")."
}

type apiCredentials struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// apiAuthResponse is returned by signInWithPassword and signUp.
type apiAuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// apiRefreshResponse is returned by the Secure Token API.
type apiRefreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// session is the persisted state of a signed-in user.
type session struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
