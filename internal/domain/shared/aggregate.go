package shared

import "time"

// Versioned is implemented by aggregates written with an optimistic version
// check: an update succeeds only if the stored version still matches.
type Versioned interface {
	Entity
	GetVersion() int
	IncrementVersion()
}

// BaseAggregateRoot is an entity with an optimistic-lock version. Version
// starts at 1 and is bumped by the repository on every successful update.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the version the aggregate was loaded at
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion records a successful write
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a version-1 aggregate stamped with the wall clock
func NewBaseAggregateRoot() BaseAggregateRoot {
	return NewBaseAggregateRootAt(time.Now())
}

// NewBaseAggregateRootAt creates a version-1 aggregate stamped at now
func NewBaseAggregateRootAt(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntityAt(now),
		Version:    1,
	}
}

var _ Versioned = (*BaseAggregateRoot)(nil)
