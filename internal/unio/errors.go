// internal/unio/errors.go
package unio

// BusError is a protocol-level failure. Every value is a sentinel,
// compare with errors.Is.
type BusError struct {
	code uint16
	msg  string
}

func (e *BusError) Error() string { return e.msg }

// Code is the numeric form reported in the bridge status block.
func (e *BusError) Code() uint16 { return e.code }

var (
	// ErrZeroLength rejects a transfer before any bus activity.
	ErrZeroLength = &BusError{code: 10, msg: "zero length transfer"}

	// ErrPageBoundary rejects a write whose range spans two pages.
	ErrPageBoundary = &BusError{code: 11, msg: "write crosses page boundary"}

	// ErrDecode signals a bit whose half periods were not complementary.
	ErrDecode = &BusError{code: 20, msg: "manchester decode error"}

	// ErrNoAck signals a missing slave acknowledge.
	ErrNoAck = &BusError{code: 21, msg: "SAK not received"}

	// ErrWriteTimeout signals WIP polling hit its iteration ceiling.
	ErrWriteTimeout = &BusError{code: 22, msg: "write cycle did not complete"}

	// ErrVerify signals read-back data differing from what was written.
	ErrVerify = &BusError{code: 23, msg: "write verify mismatch"}

	// ErrRetries is wrapped alongside the last cause once all attempts fail.
	ErrRetries = &BusError{code: 30, msg: "retries exhausted"}
)
