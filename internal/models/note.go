// Package models defines plain data types shared across notecli packages.
package models

import "time"

// PageMeta is a lightweight description of a page file returned by list operations.
type PageMeta struct {
	Path      string    `json:"path" yaml:"path"`
	Checksum  string    `json:"checksum" yaml:"checksum"`
	Size      int64     `json:"size" yaml:"size"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Event kinds reported by the watcher.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes a change to a page file.
type Event struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}
