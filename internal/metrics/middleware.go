package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// numericSegment matches numeric path segments such as token IDs.
// Compiled once at package init.
var numericSegment = regexp.MustCompile(`/(\d+)`)

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter
func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called before writing body
func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware returns an HTTP middleware that records request count and latency
// by method, normalized path and status code. A panicking handler is recorded
// as 500 and the panic is re-raised for the outer recoverer to log.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Wrap the response writer to capture the status code
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default if not explicitly set
		}

		// Record start time for duration measurement
		startTime := time.Now()

		defer func() {
			rec := recover()
			if rec != nil {
				// The recoverer writes the 500; only the label changes here
				recorder.statusCode = http.StatusInternalServerError
			}

			// Normalize the path to keep token IDs out of label values
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(recorder.statusCode)

			// Record metrics
			RecordRequest(r.Method, path, status)
			RecordRequestDuration(r.Method, path, status, time.Since(startTime).Seconds())

			if rec != nil {
				panic(rec)
			}
		}()

		// Call the next handler
		next.ServeHTTP(recorder, r)
	})
}

// normalizePath takes a request path and returns a normalized version for use as a metric label.
// Examples:
//
//	/settings/personal/authtokens/123 -> /settings/personal/authtokens/:id
//	/login -> /login
func normalizePath(path string) string {
	return numericSegment.ReplaceAllString(path, "/:id")
}
