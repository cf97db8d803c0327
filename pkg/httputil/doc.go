// Package httputil provides HTTP plumbing for the registry client.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//
// Only errors wrapped in [RetryableError] are retried; everything else is
// returned immediately. Backoff is exponential starting from the initial
// delay.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return doRequest()
//	})
//
// Response caching lives in the cache package; registry clients combine
// both (see the registry package).
package httputil
