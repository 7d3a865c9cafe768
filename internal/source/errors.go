package source

import "fmt"

// SourceError reports that the definition root, or a directory below it,
// could not be read. It is fatal to a build attempt; retrying a refresh is
// the recovery path.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read definitions %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ParseError reports a single malformed definition file. The scan carries on
// past it; the catalog builder decides whether it is fatal.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse definition %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
