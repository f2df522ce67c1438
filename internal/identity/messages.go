package identity

import (
	"fmt"
	"strings"
)

// Messages surfaced by the provider SDK. The sign-in flow compares against
// MessageUserNotFound literally, so this text must not be reworded.
const (
	MessageUserNotFound        = "[auth/user-not-found] There is no user record corresponding to this identifier. The user may have been deleted."
	MessageWrongPassword       = "[auth/wrong-password] The password is invalid or the user does not have a password."
	MessageInvalidCredential   = "[auth/invalid-credential] The supplied auth credential is incorrect, malformed or has expired."
	MessageUserDisabled        = "[auth/user-disabled] The user account has been disabled by an administrator."
	MessageEmailInUse          = "[auth/email-already-in-use] The email address is already in use by another account."
	MessageInvalidEmail        = "[auth/invalid-email] The email address is badly formatted."
	MessageWeakPassword        = "[auth/weak-password] The given password is invalid."
	MessageTooManyRequests     = "[auth/too-many-requests] We have blocked all requests from this device due to unusual activity. Try again later."
	MessageOperationNotAllowed = "[auth/operation-not-allowed] The given sign-in provider is disabled for this Firebase project. Enable it in the Firebase console, under the sign-in method tab of the Auth section."
	MessageNetworkRequest      = "[auth/network-request-failed] A network error (such as timeout, interrupted connection or unreachable host) has occurred."
	MessageInvalidAPIKey       = "[auth/invalid-api-key] Your API key is invalid, please check you have copied it correctly."
	MessageInvalidUserToken    = "[auth/invalid-user-token] This user's credential isn't valid for this project. This can happen if the user's token has been tampered with, or if the user isn't for the project associated with this API key."
	MessageMissingPassword     = "[auth/missing-password] The password is missing."
	MessageInternalError       = "[auth/internal-error] An internal error has occurred."
)

// providerErrors maps Identity Toolkit REST error codes to SDK codes and messages
var providerErrors = map[string]struct {
	code    string
	message string
}{
	"EMAIL_NOT_FOUND":             {"auth/user-not-found", MessageUserNotFound},
	"INVALID_PASSWORD":            {"auth/wrong-password", MessageWrongPassword},
	"INVALID_LOGIN_CREDENTIALS":   {"auth/invalid-credential", MessageInvalidCredential},
	"USER_DISABLED":               {"auth/user-disabled", MessageUserDisabled},
	"EMAIL_EXISTS":                {"auth/email-already-in-use", MessageEmailInUse},
	"INVALID_EMAIL":               {"auth/invalid-email", MessageInvalidEmail},
	"WEAK_PASSWORD":               {"auth/weak-password", MessageWeakPassword},
	"TOO_MANY_ATTEMPTS_TRY_LATER": {"auth/too-many-requests", MessageTooManyRequests},
	"OPERATION_NOT_ALLOWED":       {"auth/operation-not-allowed", MessageOperationNotAllowed},
	"API_KEY_INVALID":             {"auth/invalid-api-key", MessageInvalidAPIKey},
	"MISSING_PASSWORD":            {"auth/missing-password", MessageMissingPassword},
}

// providerError converts a REST error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" into an AuthError
func providerError(restMessage string) *AuthError {
	code, detail, _ := strings.Cut(restMessage, " : ")
	code = strings.TrimSpace(code)

	// API key failures come back as a free-form sentence
	if strings.HasPrefix(code, "API key not valid") {
		code = "API_KEY_INVALID"
	}

	known, ok := providerErrors[code]
	if !ok {
		return &AuthError{
			Code:    "auth/unknown",
			Message: fmt.Sprintf("[auth/unknown] %s", strings.TrimSpace(restMessage)),
		}
	}

	message := known.message
	if code == "WEAK_PASSWORD" && detail != "" {
		message = fmt.Sprintf("%s %s", message, strings.TrimSpace(detail))
	}

	return &AuthError{Code: known.code, Message: message}
}
