package commit

import (
	"errors"
	"fmt"
)

var ErrNoClient = errors.New("commit requires a client identity")

// CommitFailure reports a backend error. The reservation is still staged
// and the commit may be retried.
type CommitFailure struct {
	ClientID int64
	Err      error
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("commit for client %d failed: %v", e.ClientID, e.Err)
}

func (e *CommitFailure) Unwrap() error { return e.Err }

func (e *CommitFailure) Retryable() bool { return true }
