// Package internaldefs holds the exported metric names and bucket helpers
// shared by exporters.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
