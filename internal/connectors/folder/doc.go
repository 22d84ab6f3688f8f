// Package folder implements the FOLDER connector.
//
// As a source it crawls a local directory and yields one record per file
// matching the configured doublestar patterns. As a destination it writes
// each record's content below a root directory, optionally removing files
// that were not written during the run.
//
// # Configuration
//
//   - folder.root: directory to crawl or write to (required).
//   - folder.pattern: comma-separated glob patterns, source only. Default "**/*".
//   - folder.cleanup: "true" to delete stale files at the end of a run,
//     destination only. Default "false".
package folder
