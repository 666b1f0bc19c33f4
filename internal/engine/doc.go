// Package engine is the schema-driven CRUD core of the console.
//
// Given a resource schema and the signed-in identity, the engine loads the
// rows a view needs, resolves reference options, narrows rows to the active
// merchant/branch/category scope, searches and paginates them, and drives
// record drafts through validation, save, relation sync and delete.
//
// A View owns all mutable state for one mounted resource. State changes go
// through the named transitions of ViewState so they can be tested without a
// server. Network I/O goes through types.Transport and types.Uploader.
package engine
