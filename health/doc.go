// Package health provides the checks behind the doctor command.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. DirChecker
// verifies that the cache directory is writable and optionally that every
// entry parses; CredentialsChecker verifies that an API key is configured;
// NewPingChecker wraps any reachability check.
//
// # Aggregating Health Checks
//
// Aggregator runs registered checkers, in parallel by default, under a
// shared timeout and returns their results in registration order:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewDirChecker(health.DirCheckerConfig{Dir: dir}))
//	agg.Register(health.NewCredentialsChecker("OPENAI_API_KEY", key))
//
//	results := agg.CheckAll(ctx)
//	if health.OverallStatus(results) == health.StatusUnhealthy {
//	    os.Exit(1)
//	}
package health
