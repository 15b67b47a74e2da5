package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/validate"
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrNotOwner           = errors.New("only the owner can do that")
	ErrNotParticipant     = errors.New("not a participant of this chat")
	ErrSelfFriend         = errors.New("cannot send a friend request to yourself")
	ErrFriendshipExists   = errors.New("friend request already exists")
	ErrInvalidTransition  = errors.New("friend request can no longer be changed")
	ErrInvalidWidgetType  = errors.New("unknown widget type")
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrUserDisabled       = errors.New("account disabled")
)

var validationErrors = []error{
	validate.ErrInvalidEmail,
	validate.ErrWeakPassword,
	validate.ErrInvalidDisplayName,
	validate.ErrCaptionTooLong,
	validate.ErrInvalidComment,
	validate.ErrEmptyFile,
	validate.ErrFileTooLarge,
	validate.ErrUnsupportedImage,
}

var messages = []struct {
	err error
	msg string
}{
	{ErrEmailInUse, "An account with this email already exists."},
	{ErrInvalidCredentials, "Incorrect email or password."},
	{ErrTooManyAttempts, "Too many attempts. Please wait a moment and try again."},
	{ErrUserDisabled, "This account has been disabled."},
	{ErrNotSignedIn, "Please sign in to continue."},
	{ErrNotOwner, "Only the owner can do that."},
	{ErrNotParticipant, "You are not part of this conversation."},
	{ErrSelfFriend, "You can't add yourself as a friend."},
	{ErrFriendshipExists, "You already have a request or friendship with this user."},
	{ErrInvalidTransition, "This friend request can no longer be changed."},
	{ErrInvalidWidgetType, "That widget type is not supported."},
	{ErrEmptyMessage, "Message cannot be empty."},
	{backend.ErrNotFound, "That item no longer exists."},
	{backend.ErrAlreadyExists, "That item already exists."},
	{backend.ErrPermissionDenied, "You don't have permission to do that."},
	{backend.ErrUnavailable, "Network error. Check your connection and try again."},
	{context.DeadlineExceeded, "Network error. Check your connection and try again."},
}

// Describe turns any error into a message fit for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return sentence(v.Error())
		}
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Network error. Check your connection and try again."
	}
	return "Something went wrong. Please try again."
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
