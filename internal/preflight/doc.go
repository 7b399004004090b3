// Package preflight provides readiness checks for the filesystem paths the
// pipeline writes to.
//
// The checks run in two contexts:
//   - The daemon runs RunAll at startup and logs a warning per failed check,
//     so a bad mount or permission problem is visible before a stage needs
//     the path.
//   - The CLI "lectern status" command renders individual
//     CheckDirectoryAccess results as readiness lines.
//
// The inbox check is gated by the watch toggle -- a disabled watcher skips it.
package preflight
