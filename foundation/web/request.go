package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
	"github.com/dimfeld/httptreemux/v5"
)

// maxBodyBytes bounds the size of a request document.
const maxBodyBytes = 1 << 20

// Param returns the web call parameters from the request.
func Param(r *http.Request, key string) string {
	m := httptreemux.ContextParams(r.Context())
	return m[key]
}

// validator is implemented by request models that check themselves after
// decoding.
type validator interface {
	Validate() error
}

// Decode reads the body of an HTTP request looking for a JSON document. The
// body is decoded into the provided value. Numbers are kept as their exact
// text. If the provided value implements Validate it is executed.
func Decode(r *http.Request, val any) error {
	if r.Body == nil {
		return fmt.Errorf("request has no body")
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("unable to read payload: %w", err)
	}

	if err := canonical.Decode(data, val); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if v, ok := val.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}
