package tui

import "errors"

// ErrMissingTopicService is returned when the topic service is not provided.
var ErrMissingTopicService = errors.New("tui: topic service is required")
