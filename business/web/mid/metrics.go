package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/foundation/web"
)

// Metrics updates program counters for every request. The route label is
// the registered pattern so parameters don't explode the label space.
func Metrics(m *metrics.Metrics) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			route := r.URL.Path
			status := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil {
				route = v.Route
				if v.StatusCode != 0 {
					status = v.StatusCode
				}
			}

			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			if err != nil || status >= http.StatusInternalServerError {
				m.Errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
