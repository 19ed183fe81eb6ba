package core_test

import (
	"context"
	"errors"
	"path"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewton/constraint/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Watchable.
type MockRepository struct {
	docs map[string]core.Constraint
}

func NewMockRepository() *MockRepository {
	return &MockRepository{docs: make(map[string]core.Constraint)}
}

func (m *MockRepository) Write(ctx context.Context, c core.Constraint) error {
	m.docs[c.Category+"/"+c.ID] = c.Clone()
	return nil
}

func (m *MockRepository) Read(ctx context.Context, category, id string) (core.Constraint, error) {
	c, ok := m.docs[category+"/"+id]
	if !ok {
		return core.Constraint{}, &core.NotFoundError{ID: id}
	}
	return c.Clone(), nil
}

func (m *MockRepository) ReadByID(ctx context.Context, id string) (core.Constraint, error) {
	for _, c := range m.sorted() {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Constraint{}, &core.NotFoundError{ID: id}
}

func (m *MockRepository) ReadCategory(ctx context.Context, category string) ([]core.Constraint, error) {
	var out []core.Constraint
	for _, c := range m.sorted() {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) ReadAll(ctx context.Context) ([]core.Constraint, error) {
	return m.sorted(), nil
}

func (m *MockRepository) ReadMatching(ctx context.Context, pattern string) ([]core.Constraint, error) {
	var out []core.Constraint
	for _, c := range m.sorted() {
		if ok, _ := path.Match(pattern, c.Category); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) Search(ctx context.Context, query, categoryFilter string) ([]core.Constraint, error) {
	var out []core.Constraint
	for _, c := range m.sorted() {
		if strings.Contains(strings.ToLower(c.Text), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) Categories(ctx context.Context) ([]string, error) {
	var out []string
	for _, c := range m.sorted() {
		if !slices.Contains(out, c.Category) {
			out = append(out, c.Category)
		}
	}
	return out, nil
}

func (m *MockRepository) Delete(ctx context.Context, category, id string) error {
	key := category + "/" + id
	if _, ok := m.docs[key]; !ok {
		return &core.NotFoundError{ID: id}
	}
	delete(m.docs, key)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

// sorted returns records ordered by category then ID, for deterministic tests.
func (m *MockRepository) sorted() []core.Constraint {
	out := make([]core.Constraint, 0, len(m.docs))
	for _, c := range m.docs {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b core.Constraint) int {
		if a.Category != b.Category {
			return strings.Compare(a.Category, b.Category)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// fakeVerifier passes commands that start with "ok".
type fakeVerifier struct {
	calls []string
}

func (f *fakeVerifier) Verify(ctx context.Context, command string) (bool, string, error) {
	f.calls = append(f.calls, command)
	switch {
	case strings.HasPrefix(command, "ok"):
		return true, "fine", nil
	case command == "missing-shell":
		return false, "", errors.New("exec: \"sh\": executable file not found in $PATH")
	default:
		return false, "broken", nil
	}
}

func seed(t *testing.T, s *core.Service) (sec, perf core.Constraint) {
	t.Helper()
	ctx := context.Background()

	sec, err := s.AddConstraint(ctx, core.Params{
		Type:         core.TypeMust,
		Category:     "security",
		Text:         "All passwords must be hashed",
		Author:       "alice",
		Verification: "ok grep bcrypt",
	})
	require.NoError(t, err)

	perf, err = s.AddConstraint(ctx, core.Params{
		Type:     core.TypeShould,
		Category: "performance",
		Text:     "Pages should render in under 200ms",
		Author:   "bob",
	})
	require.NoError(t, err)
	return sec, perf
}

func TestService_CRUD(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	sec, perf := seed(t, service)
	assert.Equal(t, "nt-08exeo", sec.ID)

	// Get
	got, err := service.GetConstraint(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, sec, got)

	// List
	all, err := service.ListConstraints(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := service.ListConstraints(ctx, "performance")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, perf.ID, only[0].ID)

	glob, err := service.ListConstraints(ctx, "sec*")
	require.NoError(t, err)
	require.Len(t, glob, 1)
	assert.Equal(t, sec.ID, glob[0].ID)

	// Patch
	refs := "OWASP"
	patched, err := service.PatchConstraint(ctx, sec.ID, core.Update{References: &refs})
	require.NoError(t, err)
	assert.Equal(t, "OWASP", patched.References)

	stored, err := repo.Read(ctx, "security", sec.ID)
	require.NoError(t, err)
	assert.Equal(t, "OWASP", stored.References)

	// Delete
	removed, err := service.DeleteConstraint(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, "security", removed.Category)

	_, err = service.GetConstraint(ctx, sec.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_AddInvalid(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)

	_, err := service.AddConstraint(context.TODO(), core.Params{
		Type:     core.TypeMust,
		Category: "Security",
		Text:     "x",
		Author:   "alice",
	})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, repo.docs)
}

func TestService_PatchInvalidLeavesStoreUntouched(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	sec, _ := seed(t, service)

	bad := core.Priority("P9")
	_, err := service.PatchConstraint(context.TODO(), sec.ID, core.Update{Priority: &bad})
	assert.ErrorIs(t, err, core.ErrValidation)

	stored, err := repo.Read(context.TODO(), "security", sec.ID)
	require.NoError(t, err)
	assert.Equal(t, sec, stored)
}

func TestService_DeleteMissing(t *testing.T) {
	service := core.NewService(NewMockRepository())
	_, err := service.DeleteConstraint(context.TODO(), "nt-zzzzzz")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_ValidateConstraints(t *testing.T) {
	ctx := context.TODO()

	t.Run("structural", func(t *testing.T) {
		repo := NewMockRepository()
		service := core.NewService(repo)
		sec, _ := seed(t, service)

		broken := sec.Clone()
		broken.ID = "nt-000001"
		broken.Category = "legacy"
		broken.Author = " "
		require.NoError(t, repo.Write(ctx, broken))

		results, err := service.ValidateConstraints(ctx, core.Selection{}, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)

		sum := core.Summarize(results)
		assert.Equal(t, 2, sum.Valid)
		assert.Equal(t, 1, sum.Invalid)
		assert.True(t, sum.HasFailures())

		for _, r := range results {
			if r.ID == "nt-000001" {
				assert.Equal(t, core.CheckInvalid, r.Status)
				assert.Contains(t, r.Error, "Structural validation failed")
			} else {
				assert.Equal(t, core.CheckValid, r.Status)
				assert.Equal(t, "Structural validation passed", r.Output)
			}
		}
	})

	t.Run("execute", func(t *testing.T) {
		repo := NewMockRepository()
		service := core.NewService(repo)
		sec, perf := seed(t, service)

		v := &fakeVerifier{}
		results, err := service.ValidateConstraints(ctx, core.Selection{}, v)
		require.NoError(t, err)

		byID := map[string]core.CheckResult{}
		for _, r := range results {
			byID[r.ID] = r
		}
		assert.Equal(t, core.CheckPassed, byID[sec.ID].Status)
		assert.Equal(t, "fine", byID[sec.ID].Output)
		assert.Equal(t, core.CheckSkipped, byID[perf.ID].Status)
		assert.Equal(t, "No verification method specified", byID[perf.ID].Error)
		assert.Equal(t, []string{"ok grep bcrypt"}, v.calls)

		sum := core.Summarize(results)
		assert.False(t, sum.HasFailures())
		assert.Equal(t, 2, sum.Total)
	})

	t.Run("failing and erroring verification", func(t *testing.T) {
		repo := NewMockRepository()
		service := core.NewService(repo)
		sec, perf := seed(t, service)

		cmd := "false"
		_, err := service.PatchConstraint(ctx, sec.ID, core.Update{Verification: &cmd})
		require.NoError(t, err)
		shell := "missing-shell"
		_, err = service.PatchConstraint(ctx, perf.ID, core.Update{Verification: &shell})
		require.NoError(t, err)

		results, err := service.ValidateConstraints(ctx, core.Selection{}, &fakeVerifier{})
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, core.CheckFailed, r.Status)
			assert.True(t, r.Failed())
		}
		assert.Equal(t, 2, core.Summarize(results).Failed)
	})

	t.Run("selection", func(t *testing.T) {
		repo := NewMockRepository()
		service := core.NewService(repo)
		sec, _ := seed(t, service)

		results, err := service.ValidateConstraints(ctx, core.Selection{ID: sec.ID}, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, sec.ID, results[0].ID)

		results, err = service.ValidateConstraints(ctx, core.Selection{Category: "performance"}, nil)
		require.NoError(t, err)
		assert.Len(t, results, 1)

		_, err = service.ValidateConstraints(ctx, core.Selection{Category: "security", ID: sec.ID}, nil)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())

	_, err := service.Watch(context.TODO())
	require.Error(t, err)
	assert.Equal(t, "repository does not support watching", err.Error())
}

// streamRepository is a Watchable MockRepository fed from a test-owned channel.
type streamRepository struct {
	*MockRepository
	events chan core.Event
}

func (r *streamRepository) Watch(ctx context.Context) (<-chan core.Event, error) {
	return r.events, nil
}

func watching(s *core.Service) bool {
	return s.State().(core.ServiceState).Watching
}

func TestService_Watch(t *testing.T) {
	t.Run("Ends With The Repository Stream", func(t *testing.T) {
		repo := &streamRepository{MockRepository: NewMockRepository(), events: make(chan core.Event, 1)}
		service := core.NewService(repo)

		// Never cancelled: the forwarder must still stop once the stream closes.
		events, err := service.Watch(context.Background())
		require.NoError(t, err)
		assert.True(t, watching(service))

		repo.events <- core.Event{Type: core.EventCreate, ID: "nt-000001", Category: "security"}
		select {
		case e := <-events:
			assert.Equal(t, "CREATE security/nt-000001", e.String())
		case <-time.After(2 * time.Second):
			t.Fatal("event not forwarded")
		}

		close(repo.events)
		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("stream not closed")
		}
		assert.Eventually(t, func() bool { return !watching(service) }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Cancelled Reader Does Not Block The Repository", func(t *testing.T) {
		repo := &streamRepository{MockRepository: NewMockRepository(), events: make(chan core.Event)}
		service := core.NewService(repo)
		ctx, cancel := context.WithCancel(context.Background())

		events, err := service.Watch(ctx)
		require.NoError(t, err)
		cancel()

		sent := make(chan struct{})
		go func() {
			repo.events <- core.Event{Type: core.EventModify, ID: "nt-000002", Category: "security"}
			close(repo.events)
			close(sent)
		}()
		select {
		case <-sent:
		case <-time.After(2 * time.Second):
			t.Fatal("repository blocked after cancel")
		}

		for range events {
		}
		assert.Eventually(t, func() bool { return !watching(service) }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestService_State(t *testing.T) {
	service := core.NewService(NewMockRepository())
	st, ok := service.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, "repository", st.RepositoryType)
	assert.False(t, st.Watching)
	assert.Equal(t, "service", service.ComponentType())
}
