package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingAPIKey    = errors.New("API Key is missing.")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrEmptyUpload      = errors.New("empty upload")
	ErrNoPrompt         = errors.New("no prompt generated yet")
)
