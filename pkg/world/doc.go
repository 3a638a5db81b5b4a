// Package world loads the set of named documents a compilation runs over.
//
// Three sources are provided: a flat directory of files, a commit of a git
// repository, and a SQLite table. In every case a document's name is what an
// include directive refers to, so "services.yaml" is included as "services".
package world
