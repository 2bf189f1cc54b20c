// Package logger is a standardized event logging framework for the shell.
//
// Events are written as newline delimited JSON objects so they can be
// processed with standard tools and summarized with a Report.
package logger
