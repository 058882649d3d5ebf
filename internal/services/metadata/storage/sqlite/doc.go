// Package sqlite provides the SQLite-backed metadata storage implementation.
package sqlite
