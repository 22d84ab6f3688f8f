// Package file provides file-based implementations of driven port interfaces.
// These adapters read configuration from the local filesystem.
//
// Adapters:
//   - TaskFile: TOML task definitions
//
// A task file holds one [[task]] table per task:
//
//	[[task]]
//	name = "daily"
//
//	[task.source]
//	type = "FOLDER"
//	label = "incoming"
//	properties = { folder.root = "/data/in", folder.pattern = "**/*.xml" }
//
//	[[task.destination]]
//	type = "REDIS"
//	properties = { redis.addr = "localhost:6379" }
//
// Dotted property keys may be written bare or quoted; nested tables are
// flattened back to dot notation. Non-string values are stringified.
package file
