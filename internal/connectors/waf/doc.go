// Package waf implements the WAF (web accessible folder) input connector.
//
// A web accessible folder is an HTTP directory listing. The broker starts at
// waf.host.url, follows links to sub-folders below it and yields one record
// per linked file whose name matches waf.pattern. Folders are scraped lazily,
// one page at a time, as records are consumed.
//
// Requests are throttled to waf.rate per second and transient failures
// (network errors, 5xx, 429) are retried with exponential backoff.
package waf
