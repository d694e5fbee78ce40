// Package resilience provides the retry and concurrency policies used around
// remote calls.
//
// # Patterns
//
//   - Retry: tiered exponential backoff keyed by failure kind. Rate-limit
//     failures retry without an attempt limit, timeouts and unavailability
//     have their own budgets, everything else is surfaced immediately.
//
//   - Timeout: bounds a single attempt so that a hung call becomes a
//     retryable timeout.
//
//   - Rate Limiter: spaces out requests on the client side.
//
//   - Pool: a bounded worker pool that fans a list of items out to a fixed
//     number of workers and collects one result per item.
//
// # Classifying failures
//
// Remote adapters mark their errors with Transient or Permanent:
//
//	if resp.StatusCode == http.StatusTooManyRequests {
//	    return resilience.Transient(resilience.KindRateLimit, err)
//	}
//
// Unmarked errors are never retried.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.DefaultRetryConfig())),
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate:        20,
//	        WaitOnLimit: true,
//	    })),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callRemote(ctx)
//	})
package resilience
