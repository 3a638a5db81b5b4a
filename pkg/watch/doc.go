// Package watch keeps a compiled topology current. A FileWatcher rebuilds
// when documents in a directory source change, and a cron Scheduler runs
// periodic rebuilds for sources that cannot be watched and prunes old build
// history.
package watch
