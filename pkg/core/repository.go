package core

import "context"

// Repository defines the contract for storing and retrieving constraints.
// Records are partitioned by category; the ID alone identifies a record.
type Repository interface {
	// Write persists c, replacing any record with the same category and ID.
	Write(ctx context.Context, c Constraint) error

	// Read loads a single record from a known category.
	Read(ctx context.Context, category, id string) (Constraint, error)

	// ReadByID locates a record by scanning every category.
	ReadByID(ctx context.Context, id string) (Constraint, error)

	// ReadCategory returns every loadable record in a category.
	// Unloadable files are skipped and reported out of band.
	ReadCategory(ctx context.Context, category string) ([]Constraint, error)

	// ReadAll returns every loadable record in the store.
	ReadAll(ctx context.Context) ([]Constraint, error)

	// ReadMatching returns the records of every category whose name matches a glob pattern.
	ReadMatching(ctx context.Context, pattern string) ([]Constraint, error)

	// Search performs a case-insensitive substring match over text, tags, category and references.
	// An empty categoryFilter searches everything.
	Search(ctx context.Context, query, categoryFilter string) ([]Constraint, error)

	// Categories lists the category names present in the store.
	Categories(ctx context.Context) ([]string, error)

	// Delete removes a record.
	Delete(ctx context.Context, category, id string) error

	// Initialize ensures the underlying storage is ready.
	Initialize(ctx context.Context) error
}

// Watchable is implemented by repositories that can report changes as they happen.
type Watchable interface {
	// Watch emits events until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Verifier executes a verification command attached to a constraint.
type Verifier interface {
	Verify(ctx context.Context, command string) (passed bool, output string, err error)
}
