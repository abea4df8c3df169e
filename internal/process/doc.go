// Package process runs the external downloader and encoder.
//
// Driver.Run spawns one subprocess, splits its stdout and stderr on newline
// or carriage return, feeds every line through the progress parser and hands
// the resulting facts to the caller. On exit it settles on the produced file:
// the last path the tool announced, the caller's expected output, or a
// resolver scan of the working directory. Failures are reported as *Error
// values classified by Kind.
package process
