package types

import (
	"fmt"
)

type (
	// ConfigurationError reports a malformed or missing setting.
	ConfigurationError struct {
		Field string
		Err   error
	}

	// RemoteAccessError reports a transport, auth or HTTP failure talking
	// to the remote API.
	RemoteAccessError struct {
		Op     string
		Path   string
		Status int
		Err    error
	}

	// DecodeError reports a remote file body that could not be decoded.
	DecodeError struct {
		Path string
		Err  error
	}

	// InvalidPathError reports a local root that is missing or not a directory.
	InvalidPathError struct {
		Path string
		Err  error
	}

	// FileReadError reports a local file that could not be read.
	FileReadError struct {
		Path string
		Err  error
	}
)

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *RemoteAccessError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", msg, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *RemoteAccessError) Unwrap() error { return e.Err }

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid directory path: %s: %v", e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

func (e *FileReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }
