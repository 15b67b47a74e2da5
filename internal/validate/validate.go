// Package validate checks user input before any network call is made.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MinPasswordLength   = 6
	MaxDisplayNameRunes = 50
	MaxCaptionRunes     = 500
	MaxCommentRunes     = 500
	MaxImageBytes       = 10 << 20
)

var (
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters and contain a letter and a number")
	ErrInvalidDisplayName = errors.New("display name must be between 1 and 50 characters")
	ErrCaptionTooLong     = errors.New("caption must be 500 characters or fewer")
	ErrInvalidComment     = errors.New("comment must be between 1 and 500 characters")
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file must be 10 MB or smaller")
	ErrUnsupportedImage   = errors.New("file must be a JPEG, PNG, WebP, GIF or HEIC image")
)

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/heic",
	"image/heif",
}

func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

func Password(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

func DisplayName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 1 || n > MaxDisplayNameRunes {
		return ErrInvalidDisplayName
	}
	return nil
}

func Caption(caption string) error {
	if utf8.RuneCountInString(caption) > MaxCaptionRunes {
		return ErrCaptionTooLong
	}
	return nil
}

func CommentText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < 1 || n > MaxCommentRunes {
		return ErrInvalidComment
	}
	return nil
}

// ImageFile sniffs data and returns its MIME type when it is an accepted
// image within the size limit.
func ImageFile(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxImageBytes {
		return "", ErrFileTooLarge
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, mt.String())
}
