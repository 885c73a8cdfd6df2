package docproc

import "errors"

var (
	// ErrNotPDF rejects an upload whose declared type and extension are
	// not PDF, before any record is written.
	ErrNotPDF = errors.New("only PDF documents are supported")

	// ErrAlreadyRetried signals that a document has used its single
	// retry; it is distinct from generic validation failure.
	ErrAlreadyRetried = errors.New("document has already been retried")

	// ErrRetryNotAllowed signals a retry on a document that is not in a
	// retryable state.
	ErrRetryNotAllowed = errors.New("document is not in a retryable state")

	// ErrNotFound signals a document lookup miss.
	ErrNotFound = errors.New("document not found")
)
