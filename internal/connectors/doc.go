// Package connectors wires the built-in connector implementations into a
// connector registry. Each subpackage implements one connector type:
//
//   - folder: local directory source and destination (FOLDER)
//   - waf: web folder crawler source (WAF)
//   - jdbc: SQL query source (JDBC)
//   - github: repository file source (GITHUB)
//   - csw: catalogue service GetRecords source (CSW)
//   - redis: stream destination (REDIS)
package connectors
