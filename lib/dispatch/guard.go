package dispatch

import (
	"fmt"

	"github.com/snowmerak/bridge.go/lib/result"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// guard is the catch-all at the boundary seam. Every table entry runs inside
// one; a panic anywhere below becomes an exception code with the panic value
// as the message, truncated to the caller's error buffer if needed.
func guard(errBuf *wire.StringBuffer, fn func() result.Code) (code result.Code) {
	defer func() {
		if r := recover(); r != nil {
			if errBuf != nil {
				errBuf.WriteTruncated(fmt.Sprint(r))
			}
			code = result.ErrException
		}
	}()
	return fn()
}

// fail records a message in the error buffer and returns the code.
func fail(errBuf *wire.StringBuffer, code result.Code, msg string) result.Code {
	if errBuf != nil {
		errBuf.WriteTruncated(msg)
	}
	return code
}

// failErr flattens a native error onto the code channel.
func failErr(errBuf *wire.StringBuffer, err error) result.Code {
	code, msg := result.Encode(err)
	return fail(errBuf, code, msg)
}
