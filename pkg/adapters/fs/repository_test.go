package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewton/constraint/pkg/adapters/fs"
	"github.com/gonewton/constraint/pkg/core"
)

// setupRepo creates an initialized repository in a temp dir.
// It returns the repository and the constraints root path.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), ".newton", "constraints")
	cfg := fs.Config{Path: root}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo := fs.NewRepository(cfg)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, root
}

func newConstraint(t *testing.T, typ core.Type, category, text string) core.Constraint {
	t.Helper()
	c, err := core.New(core.Params{Type: typ, Category: category, Text: text, Author: "tester"})
	require.NoError(t, err)
	return c
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		_, root := setupRepo(t)
		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "nope"), MustExist: true})
		err := repo.Initialize(context.Background())
		assert.ErrorIs(t, err, core.ErrIO)
	})
}

func TestWriteThenRead(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	c := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	c.Tags = []string{"auth"}
	c.Priority = core.PriorityP1
	require.NoError(t, repo.Write(ctx, c))

	path := filepath.Join(root, "security", "nt-08exeo.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"), "record should end with a newline")
	assert.Equal(t, 1, strings.Count(string(data), "\n"))

	got, err := repo.Read(ctx, "security", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	byID, err := repo.ReadByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, byID)
}

func TestWrite_ForcesCurrentVersion(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newConstraint(t, core.TypeMay, "docs", "Docs may include diagrams")
	c.Version = 7
	require.NoError(t, repo.Write(ctx, c))

	got, err := repo.Read(ctx, "docs", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, 7, c.Version, "caller's value must not be mutated")
}

func TestWrite_RejectsInvalid(t *testing.T) {
	repo, root := setupRepo(t)

	c := newConstraint(t, core.TypeMust, "security", "x")
	c.Author = ""
	err := repo.Write(context.Background(), c)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, statErr := os.Stat(filepath.Join(root, "security"))
	assert.True(t, os.IsNotExist(statErr), "nothing should be created for an invalid record")
}

func TestWrite_RejectsUndecodableFields(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	good := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, repo.Write(ctx, good))
	path := filepath.Join(root, "security", good.ID+".jsonl")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*core.Constraint)
		target error
	}{
		{"Lowercase Type", func(c *core.Constraint) { c.Type = "must" }, core.ErrInvalidType},
		{"Empty Type", func(c *core.Constraint) { c.Type = "" }, core.ErrInvalidType},
		{"Empty Status", func(c *core.Constraint) { c.ValidationStatus = "" }, core.ErrValidation},
		{"Unknown Status", func(c *core.Constraint) { c.ValidationStatus = "stale" }, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := good.Clone()
			tt.mutate(&bad)

			assert.ErrorIs(t, repo.Write(ctx, bad), tt.target)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after), "existing record must be left untouched")

			got, err := repo.Read(ctx, "security", good.ID)
			require.NoError(t, err)
			assert.Equal(t, good, got)
		})
	}
}

func TestWrite_NormalizesTimestamps(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	zone := time.FixedZone("UTC+2", 2*60*60)
	c := newConstraint(t, core.TypeShould, "performance", "Cache responses")
	c.CreatedAt = time.Date(2024, 3, 1, 14, 0, 0, 123456789, zone)
	c.UpdatedAt = time.Date(2024, 3, 1, 15, 30, 0, 999, zone)
	require.NoError(t, repo.Write(ctx, c))

	got, err := repo.Read(ctx, "performance", c.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC), got.UpdatedAt)

	// Writing the read-back value again is a fixed point.
	require.NoError(t, repo.Write(ctx, got))
	again, err := repo.Read(ctx, "performance", c.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestWrite_Overwrites(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	c := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, repo.Write(ctx, c))

	c.References = "OWASP"
	require.NoError(t, repo.Write(ctx, c))

	got, err := repo.Read(ctx, "security", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "OWASP", got.References)

	entries, err := os.ReadDir(filepath.Join(root, "security"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestRead(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	t.Run("Missing Record", func(t *testing.T) {
		_, err := repo.Read(ctx, "security", "nt-zzzzzz")
		var nf *core.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "nt-zzzzzz", nf.ID)
	})

	t.Run("Invalid ID Checked First", func(t *testing.T) {
		_, err := repo.Read(ctx, "../../etc", "passwd")
		assert.ErrorIs(t, err, core.ErrInvalidID)
	})

	t.Run("Rejects Path Traversal In Category", func(t *testing.T) {
		outside := filepath.Join(filepath.Dir(root), "nt-000001.jsonl")
		require.NoError(t, os.WriteFile(outside, []byte("{}"), 0o644))

		_, err := repo.Read(ctx, "..", "nt-000001")
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("Malformed File", func(t *testing.T) {
		dir := filepath.Join(root, "broken")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nt-000002.jsonl"), []byte("{oops"), 0o644))

		_, err := repo.Read(ctx, "broken", "nt-000002")
		assert.ErrorIs(t, err, core.ErrParse)
	})

	t.Run("Embedded ID Is Checked", func(t *testing.T) {
		c := newConstraint(t, core.TypeMust, "embedded", "text")
		require.NoError(t, repo.Write(ctx, c))

		path := filepath.Join(root, "embedded", c.ID+".jsonl")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), c.ID, "NOT-AN-ID", 1)), 0o644))

		_, err = repo.Read(ctx, "embedded", c.ID)
		assert.ErrorIs(t, err, core.ErrInvalidID)
	})
}

func TestDeleteThenRead(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newConstraint(t, core.TypeForbidden, "security", "Secrets in source control")
	require.NoError(t, repo.Write(ctx, c))
	require.NoError(t, repo.Delete(ctx, "security", c.ID))

	_, err := repo.Read(ctx, "security", c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.Delete(ctx, "security", c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.Delete(ctx, "security", "bogus")
	assert.ErrorIs(t, err, core.ErrInvalidID)
}

func TestReadCategory_PartialFailure(t *testing.T) {
	var (
		mu      sync.Mutex
		skipped []error
	)
	repo, root := setupRepo(t, func(c *fs.Config) {
		c.ErrorHandler = func(err error) {
			mu.Lock()
			defer mu.Unlock()
			skipped = append(skipped, err)
		}
	})
	ctx := context.Background()

	good := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, repo.Write(ctx, good))

	dir := filepath.Join(root, "security")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nt-000001.jsonl"), []byte("not json at all"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nt-000002.jsonl"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	got, err := repo.ReadCategory(ctx, "security")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)

	assert.Len(t, skipped, 2)
	for _, e := range skipped {
		assert.ErrorIs(t, e, core.ErrParse)
	}
}

func TestReadCategory_UnknownVersion(t *testing.T) {
	var skipped []error
	repo, root := setupRepo(t, func(c *fs.Config) {
		c.ErrorHandler = func(err error) { skipped = append(skipped, err) }
	})
	ctx := context.Background()

	c := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, repo.Write(ctx, c))

	path := filepath.Join(root, "security", c.ID+".jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), `"version":1`, `"version":999`, 1)), 0o644))

	got, err := repo.ReadCategory(ctx, "security")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.Len(t, skipped, 1)
	var uv *core.UnknownVersionError
	require.True(t, errors.As(skipped[0], &uv))
	assert.Equal(t, 999, uv.Version)
}

func TestReadCategory_Absent(t *testing.T) {
	repo, _ := setupRepo(t)

	got, err := repo.ReadCategory(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	t.Run("Name That Cannot Be A Category", func(t *testing.T) {
		for _, name := range []string{"Security", "..", "a/b", ""} {
			got, err := repo.ReadCategory(context.Background(), name)
			require.NoError(t, err, name)
			assert.NotNil(t, got, name)
			assert.Empty(t, got, name)
		}

		found, err := repo.Search(context.Background(), "hashed", "Security")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestReadAll(t *testing.T) {
	t.Run("Empty When Root Absent", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "missing")})
		got, err := repo.ReadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Union Over Categories", func(t *testing.T) {
		repo, root := setupRepo(t)
		ctx := context.Background()

		for _, c := range []core.Constraint{
			newConstraint(t, core.TypeMust, "security", "All passwords must be hashed"),
			newConstraint(t, core.TypeShould, "performance", "Cache hot paths"),
			newConstraint(t, core.TypeMay, "performance", "Use a CDN"),
		} {
			require.NoError(t, repo.Write(ctx, c))
		}
		// Directories that cannot be categories are ignored.
		require.NoError(t, os.MkdirAll(filepath.Join(root, "Not_A_Category"), 0o755))

		got, err := repo.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, "performance", got[0].Category)

		cats, err := repo.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"performance", "security"}, cats)
	})
}

func TestReadByID_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, newConstraint(t, core.TypeMust, "security", "x")))

	_, err := repo.ReadByID(ctx, "nt-zzzzzz")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.ReadByID(ctx, "NT-1")
	assert.ErrorIs(t, err, core.ErrInvalidID)
}

func TestReadMatching(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	for _, cat := range []string{"security", "security-web", "performance"} {
		require.NoError(t, repo.Write(ctx, newConstraint(t, core.TypeMust, cat, "rule for "+cat)))
	}

	got, err := repo.ReadMatching(ctx, "security*")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.ReadMatching(ctx, "{perf,sec}*")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = repo.ReadMatching(ctx, "[")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSearch(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	hashed := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	tagged := newConstraint(t, core.TypeShould, "performance", "Cache responses")
	tagged.Tags = []string{"HTTP", "Latency"}
	ref := newConstraint(t, core.TypeMay, "docs", "Diagrams are welcome")
	ref.References = "See the Straße guide"
	for _, c := range []core.Constraint{hashed, tagged, ref} {
		require.NoError(t, repo.Write(ctx, c))
	}

	tests := []struct {
		name, query, filter string
		want                []string
	}{
		{"text case insensitive", "PASSWORDS", "", []string{hashed.ID}},
		{"tag", "latency", "", []string{tagged.ID}},
		{"category", "secur", "", []string{hashed.ID}},
		{"references with folding", "STRASSE", "", []string{ref.ID}},
		{"category filter excludes", "passwords", "performance", nil},
		{"glob filter", "a", "sec*", []string{hashed.ID}},
		{"no match", "kubernetes", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.query, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestReadOnly(t *testing.T) {
	root := filepath.Join(t.TempDir(), "constraints")
	writable := fs.NewRepository(fs.Config{Path: root})
	require.NoError(t, writable.Initialize(context.Background()))
	c := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, writable.Write(context.Background(), c))

	repo := fs.NewRepository(fs.Config{Path: root, ReadOnly: true})
	ctx := context.Background()

	assert.ErrorIs(t, repo.Write(ctx, c), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Delete(ctx, "security", c.ID), core.ErrReadOnly)

	got, err := repo.Read(ctx, "security", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

// The end-to-end scenario: one security rule, stored, listed, found and removed.
func TestSecurityScenario(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	c := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	assert.Equal(t, "nt-08exeo", c.ID)
	require.NoError(t, repo.Write(ctx, c))

	_, err := os.Stat(filepath.Join(root, "security", "nt-08exeo.jsonl"))
	require.NoError(t, err)

	all, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, c, all[0])

	found, err := repo.Search(ctx, "password", "")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, repo.Delete(ctx, "security", "nt-08exeo"))
	all, err = repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestState(t *testing.T) {
	repo, root := setupRepo(t)

	st, ok := repo.State().(fs.RepositoryState)
	require.True(t, ok)
	assert.Equal(t, root, st.Path)
	assert.Equal(t, ".jsonl", st.Extension)
	assert.Equal(t, 1, st.CurrentVersion)
	assert.Equal(t, []int{1}, st.SupportedVersions)
	assert.False(t, st.WatcherActive)
	assert.Equal(t, "repository", repo.ComponentType())
}
