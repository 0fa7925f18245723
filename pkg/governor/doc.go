// Package governor paces outbound requests toward third-party domains.
//
// # Overview
//
// The governor makes admission decisions for crawl workers and retunes
// per-domain throughput from observed outcomes. Each domain is governed
// independently through four cooperating mechanisms:
//
//   - Token bucket: admits requests against a refilling per-domain budget
//   - Circuit breaker: blocks a consistently failing domain outright
//   - Adaptive controller: raises or lowers a domain's rate within bounds
//   - Statistics: rolling window of recent results per domain
//
// # Usage
//
//	g := governor.New(config.Default())
//	defer g.Close()
//
//	res := g.CheckRateLimit("shop.example.com")
//	if !res.Allowed {
//	    time.Sleep(g.Backoff(attempt))
//	    // retry
//	}
//
//	// ... issue the HTTP request ...
//
//	g.ReportRequestResult(governor.RequestResult{
//	    Domain:       "shop.example.com",
//	    StatusCode:   resp.StatusCode,
//	    ResponseTime: elapsed,
//	    Success:      resp.StatusCode < 400,
//	})
//
// # Concurrency
//
// CheckRateLimit and ReportRequestResult are safe for concurrent use from
// many workers. Mutation is serialized per domain, not globally, so traffic
// to one host never contends with traffic to another. Neither call blocks
// beyond the storage backend's own timeout.
//
// # Failure Philosophy
//
// Infrastructure problems never surface as errors on the admission path: a
// lost storage backend degrades to in-memory state with a logged warning,
// and an open circuit is an expected outcome reported through
// CheckResult.Reason, not an error.
package governor
