package errutils

// Package errutils provides a set of utilities for working with errors in Go.

// Example:
//
// The following example demonstrates how to use `MultiError` to collect several errors:
//
//     package main
//
//     import (
//         "fmt"
//         "oss.nandlabs.io/jobengine/errutils"
//     )
//
//     func main() {
//         var merr errutils.MultiError
//         merr.Add(someFunction())
//         merr.Add(otherFunction())
//         if merr.HasErrors() {
//             fmt.Println(merr.Error())
//         }
//     }
//
// In the above example, `Add` keeps every non-nil error returned by `someFunction()` and `otherFunction()`.
// The collected errors are then printed one per line using `fmt.Println()`.
