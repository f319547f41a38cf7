package ledger

import "errors"

var (
	// ErrStoreNotFound is fatal at startup: the store has to be shared with
	// the service credential (or provisioned) by an operator.
	ErrStoreNotFound = errors.New("ledger store not found or not shared with the service account")
	// ErrWriteRejected means the store refused an append for a reason worth
	// retrying, such as a rate limit or timeout.
	ErrWriteRejected = errors.New("ledger write rejected, retry later")
	// ErrMalformedAmount flags a stored row whose amount cell is not numeric.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrMalformedDate flags a stored row whose date cell does not parse.
	ErrMalformedDate = errors.New("malformed date")
	// ErrSchemaMismatch means the first row of an existing ledger is not the
	// expected header.
	ErrSchemaMismatch = errors.New("ledger header does not match schema")
)
