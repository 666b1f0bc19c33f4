// Package types defines the resource schema model, the row/option/link value
// types, the collaborator interfaces (Transport, Uploader, Location) and the
// standard errors shared by the console engine and its adapters.
package types
