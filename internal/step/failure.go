package step

import "fmt"

// Failure pairs the description of a failed step with the error that caused
// it. Immutable once created; listeners and the tally hold the same value.
type Failure struct {
	Description Description
	Cause       error
}

// NewFailure creates a failure record.
func NewFailure(desc Description, cause error) Failure {
	return Failure{Description: desc, Cause: cause}
}

// String returns the failed step identity and its cause, markup-free.
func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Description.String(), f.Cause)
}
