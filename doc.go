// Package main provides the entry point for the role index maintenance
// tooling. The index mirrors user role assignments across the sites and
// networks of a multisite install into one queryable table; the commands here
// manage its schema, backfill it from the platform's authoritative records,
// and report its state. The application uses gorm for data persistence.
package main
