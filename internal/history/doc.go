// Package history records stage job runs in a SQLite database under the state
// directory so `mvspipe history` can show what ran against which workspace and
// how it ended.
package history
