// Package store provides durable persistence for agent records.
package store

import (
	"errors"
	"io"

	"github.com/dhaslem/armada/pkg/models"
)

// ErrNotFound indicates no record exists for the task id.
var ErrNotFound = errors.New("agent record not found")

// RecordStore is the keyed on-disk store for agent records, addressed by
// task id and durable across process restarts.
type RecordStore interface {
	io.Closer

	// Get returns the record for the task id, or ErrNotFound.
	Get(taskID string) (*models.AgentRecord, error)
	// Put inserts or replaces the record for its task id.
	Put(record *models.AgentRecord) error
	// Delete removes the record for the task id. Deleting a missing
	// record is not an error.
	Delete(taskID string) error
	// List returns every stored record.
	List() ([]*models.AgentRecord, error)
}

// Migrator handles schema migrations for stores that need them.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Compile-time verification that DB implements the interfaces.
var (
	_ RecordStore = (*DB)(nil)
	_ Migrator    = (*DB)(nil)
)
