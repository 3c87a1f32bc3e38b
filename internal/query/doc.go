// Package query filters, sorts, paginates and projects heterogeneous record
// collections.
//
// Run applies a fixed pipeline over a fully materialized slice:
//
//	text match -> key/value filters -> time range -> sort -> offset/limit -> projection
//
// Filters narrow before sorting, sorting precedes pagination, and projection
// is last so every earlier stage sees whole records. Every stage returns new
// slices and leaves its input untouched, so running the same query twice
// yields the same output.
package query
