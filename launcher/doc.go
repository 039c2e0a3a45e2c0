// Package launcher provides the decorator-style submission surface spec §4
// describes for turning an ordinary function into a job-backed one: wrap it
// once with New, then Invoke or Submit it like any other function call.
package launcher
