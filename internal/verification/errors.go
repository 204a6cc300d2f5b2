package verification

import "github.com/dropDatabas3/rolegate/internal/domain/errs"

// Catálogo de errores del flujo de verificación. Message es lo que ve el usuario.
var (
	ErrMissingID        = errs.New(errs.KindInvalidInput, "missing_institutional_id", "Please provide your KTH ID.")
	ErrMissingCode      = errs.New(errs.KindInvalidInput, "missing_code", "Please provide your verification code.")
	ErrMissingRequester = errs.New(errs.KindInvalidInput, "missing_requester", "Missing requester.")

	ErrAlreadyPending       = errs.New(errs.KindStateConflict, "already_pending", "You already have a pending authentication. Check your inbox or ask for the e-mail to be resent.")
	ErrAlreadyAuthenticated = errs.New(errs.KindStateConflict, "already_authenticated", "You are already authenticated.")

	ErrIdentityUnreachable = errs.New(errs.KindExternalUnavailable, "identity_unreachable", "Failed to reach authentication service.")
	ErrIdentityNotFound    = errs.New(errs.KindNotFound, "identity_not_found", "Couldn't find KTH ID.")
	ErrDeliveryFailed      = errs.New(errs.KindExternalUnavailable, "delivery_failed", "Failed to send e-mail. A message containing the error has been sent to the mods for investigation.")

	ErrCodeNotFound = errs.New(errs.KindNotFound, "code_not_found", "No pending authentication for this combination of user and verification code.")
	ErrNoPending    = errs.New(errs.KindNotFound, "no_pending", "You have no pending authentication. Begin one with your KTH ID.")

	ErrDirectoryUnavailable = errs.New(errs.KindExternalUnavailable, "directory_unavailable", "Failed to reach the staff directory. Please try again later.")
	ErrDirectoryFormat      = errs.New(errs.KindExternalUnavailable, "directory_format", "Failed to read the staff directory. The moderators have been notified.")
	ErrRoleNotConfigured    = errs.New(errs.KindNotFound, "role_not_configured", "Failed to find the required roles in server.")
	ErrPlatformUnavailable  = errs.New(errs.KindExternalUnavailable, "platform_unavailable", "Failed to reach the chat platform. Please try again later.")
	ErrGrantFailed          = errs.New(errs.KindExternalUnavailable, "grant_failed", "Failed to give you your role. Your code is still valid, please try again.")
	ErrAuditWriteFailed     = errs.New(errs.KindPartialFailure, "audit_write_failed", "Your role was granted but the authentication could not be recorded. The moderators have been notified.")

	ErrThrottled = errs.New(errs.KindThrottled, "throttled", "Too many attempts. Please wait a few minutes and try again.")
)
