// Package domain defines the metadata records shared by the sync engine,
// storage, and the HTTP API: projects, build badges, and per-user review
// events, plus the depot path grammar that identifies a project.
package domain
