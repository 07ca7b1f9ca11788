// Package logs reads back the mvspipe log file for `mvspipe logs`.
//
// Last returns the final N lines with bounded memory, and Follow polls from a
// byte offset until its context ends, restarting at zero when the file is
// truncated. Filter narrows lines to a job id or any other substring.
package logs
