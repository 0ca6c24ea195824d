package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is wrapped by MissingCredentialError.
	ErrMissingCredential = errors.New("missing API credential")
	// ErrNoImage means the response carried neither an image nor text.
	ErrNoImage = errors.New("no image was returned by the model")
	// ErrNotImage is returned for inputs that do not claim an image media type.
	ErrNotImage = errors.New("input is not an image")
)

// MissingCredentialError reports an unset credential environment variable.
type MissingCredentialError struct {
	Env string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s environment variable is not set; export it with your Gemini API key", e.Env)
}

func (e *MissingCredentialError) Unwrap() error { return ErrMissingCredential }

// RefusalError carries the text the model returned instead of an image.
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return "the model did not return an image: " + e.Text
}
