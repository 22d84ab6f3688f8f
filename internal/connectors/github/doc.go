// Package github implements the GITHUB input connector, which harvests the
// files of one repository.
//
// # Configuration
//
//   - github.repo: "owner/name" (required).
//   - github.ref: branch, tag or commit SHA. Default: the repository's default branch.
//   - github.pattern: comma-separated doublestar globs on the file path.
//     Default "**/*.xml".
//   - github.token: personal access or OAuth token. Optional for public
//     repositories.
//   - github.api.url: API base URL for GitHub Enterprise.
//
// # Harvest
//
// The broker resolves the ref, fetches the repository tree in one recursive
// call and yields one record per matching blob. Blob contents are fetched
// lazily by Next.
//
// # Rate Limiting
//
// Two strategies are combined:
//
//  1. Proactive throttling: a token bucket limits requests to about 1.2 per
//     second, below the 5,000 requests per hour granted to authenticated users.
//
//  2. Reactive handling: X-RateLimit-Remaining and X-RateLimit-Reset headers
//     are tracked. When fewer than MinBuffer requests remain the broker waits
//     for the reset time before continuing.
package github
