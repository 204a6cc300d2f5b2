package passphrase

import "github.com/dropDatabas3/rolegate/internal/domain/errs"

var (
	ErrEmptyPhrase    = errs.New(errs.KindInvalidInput, "missing_phrase", "Please provide a passphrase.")
	ErrEmptyRole      = errs.New(errs.KindInvalidInput, "missing_role", "Please provide a role.")
	ErrEmptyRequester = errs.New(errs.KindInvalidInput, "missing_requester", "Missing requester.")

	ErrAlreadyOpen        = errs.New(errs.KindStateConflict, "window_already_open", "Registration is already open.")
	ErrRegistrationClosed = errs.New(errs.KindStateConflict, "registration_closed", "Registration is currently closed.")

	ErrWrongPhrase  = errs.New(errs.KindNotFound, "wrong_phrase", "That is not the current passphrase. Please try again.")
	ErrNotLinked    = errs.New(errs.KindNotFound, "phrase_not_linked", "This phrase does not currently seem to be linked to any roles. Please try again.")
	ErrRoleNotFound = errs.New(errs.KindNotFound, "role_not_found", "That role does not exist in this server.")

	ErrPlatformUnavailable = errs.New(errs.KindExternalUnavailable, "platform_unavailable", "Failed to reach the chat platform. Please try again later.")
	ErrGrantFailed         = errs.New(errs.KindExternalUnavailable, "grant_failed", "Failed to give you the linked roles. No roles were changed, please try again.")
	ErrCompensationFailed  = errs.New(errs.KindPartialFailure, "compensation_failed", "Some roles could not be given and the ones already given could not be taken back. The moderators have been notified.")
)
