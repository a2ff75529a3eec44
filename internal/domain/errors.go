package domain

import "errors"

var (
	// ErrEventNotFound is returned for an unknown event id or access code.
	ErrEventNotFound = errors.New("event not found")
	// ErrCategoryNotFound indicates an unknown bet category id.
	ErrCategoryNotFound = errors.New("bet category not found")
	// ErrParticipantNotFound is returned when a user acts on an event they never joined.
	ErrParticipantNotFound = errors.New("participant not found in event")
	// ErrNotCreator guards creator-only operations (status toggles, settlement).
	ErrNotCreator = errors.New("only the event creator may perform this action")
	// ErrNotParticipant is returned when a non-participant tries to bet.
	ErrNotParticipant = errors.New("user has not joined this event")
	// ErrCategoryNotOpen rejects bet placement on a closed or settled category.
	ErrCategoryNotOpen = errors.New("category is not open for betting")
	// ErrCategoryNotClosed rejects settlement of a category that is still open.
	ErrCategoryNotClosed = errors.New("category must be closed before settlement")
	// ErrCategorySettled rejects any mutation of a settled category.
	ErrCategorySettled = errors.New("category is already settled")
	// ErrOptionUnknown indicates the selected or declared option is not in the category's option set.
	ErrOptionUnknown = errors.New("option is not one of the category's options")
	// ErrAccessCodeTaken signals an access-code uniqueness conflict; the generator retries on it.
	ErrAccessCodeTaken = errors.New("access code already in use")
	// ErrInvalidArgument wraps malformed input (empty title, bad date, missing options).
	ErrInvalidArgument = errors.New("invalid argument")
)
