// Package fetch provides the shared HTTP client used by all evidence
// sources. It rotates User-Agent strings and proxies round-robin,
// retries transient failures with doubling backoff, and caps response
// body sizes.
package fetch
