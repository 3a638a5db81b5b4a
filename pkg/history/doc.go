// Package history records the outcome of each build so that failures can be
// inspected after the fact with `underway history`.
package history
