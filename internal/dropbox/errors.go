package dropbox

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("dropbox configuration error")
	// ErrProtocol matches every *ProtocolError via errors.Is.
	ErrProtocol = errors.New("dropbox protocol error")

	errNotDirectory = errors.New("not a directory")
)

// ConfigurationError reports an unusable dropbox path. It is always returned
// before anything is written to the dropbox.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid dropbox %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ProtocolError reports a result document that could not be understood.
// Source names where the document came from: a result file path or a
// broker subject.
type ProtocolError struct {
	Source string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid result from %s: %v", e.Source, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }
