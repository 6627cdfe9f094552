package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreTests checks the Store contract against any backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AddIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		added, err := s.AddUser("alice")
		require.NoError(t, err)
		assert.True(t, added)

		added, err = s.AddUser("alice")
		require.NoError(t, err)
		assert.False(t, added)

		users, err := s.ListUsers()
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, users)
	})

	t.Run("AddNormalizesLeadingAt", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		added, err := s.AddUser("@bob")
		require.NoError(t, err)
		assert.True(t, added)

		authorized, err := s.IsAuthorized("bob")
		require.NoError(t, err)
		assert.True(t, authorized)

		authorized, err = s.IsAuthorized("@bob")
		require.NoError(t, err)
		assert.True(t, authorized)

		added, err = s.AddUser("bob")
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("RemoveAbsentIsNoop", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		removed, err := s.RemoveUser("ghost")
		require.NoError(t, err)
		assert.False(t, removed)

		require.NoError(t, errFromAdd(s.AddUser("carol")))
		removed, err = s.RemoveUser("ghost")
		require.NoError(t, err)
		assert.False(t, removed)

		users, err := s.ListUsers()
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, users)
	})

	t.Run("RemovePresent", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, errFromAdd(s.AddUser("dave")))
		removed, err := s.RemoveUser("dave")
		require.NoError(t, err)
		assert.True(t, removed)

		authorized, err := s.IsAuthorized("dave")
		require.NoError(t, err)
		assert.False(t, authorized)
	})

	t.Run("EmptyIdentityNeverAuthorized", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		authorized, err := s.IsAuthorized("")
		require.NoError(t, err)
		assert.False(t, authorized)

		added, err := s.AddUser("")
		require.NoError(t, err)
		assert.False(t, added)

		require.NoError(t, s.LogAccess(""))
		logged, err := s.AccessLog()
		require.NoError(t, err)
		assert.Empty(t, logged)
	})

	t.Run("ListPreservesInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		for _, u := range []string{"carol", "alice", "bob"} {
			require.NoError(t, errFromAdd(s.AddUser(u)))
		}
		users, err := s.ListUsers()
		require.NoError(t, err)
		assert.Equal(t, []string{"carol", "alice", "bob"}, users)
	})

	t.Run("ListEmptyIsNotAnError", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		users, err := s.ListUsers()
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("LogAccessDeduplicates", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		for i := 0; i < 5; i++ {
			require.NoError(t, s.LogAccess("eve"))
		}
		require.NoError(t, s.LogAccess("frank"))
		logged, err := s.AccessLog()
		require.NoError(t, err)
		assert.Equal(t, []string{"eve", "frank"}, logged)
	})

	t.Run("ConcurrentMutationsDoNotLoseEntries", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.AddUser(fmt.Sprintf("user%02d", i))
				assert.NoError(t, err)
				assert.NoError(t, s.LogAccess("shared"))
			}(i)
		}
		wg.Wait()

		users, err := s.ListUsers()
		require.NoError(t, err)
		assert.Len(t, users, n)

		logged, err := s.AccessLog()
		require.NoError(t, err)
		assert.Equal(t, []string{"shared"}, logged)
	})
}

func errFromAdd(_ bool, err error) error {
	return err
}

func TestFileStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, errFromAdd(s.AddUser("alice")))
	require.NoError(t, errFromAdd(s.AddUser("bob")))
	require.NoError(t, s.LogAccess("alice"))

	// One identity per line, no escaping.
	users, err := os.ReadFile(filepath.Join(dir, usersFilename))
	require.NoError(t, err)
	assert.Equal(t, "alice\nbob\n", string(users))

	logged, err := os.ReadFile(filepath.Join(dir, accessLogFilename))
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(logged))
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, errFromAdd(s.AddUser("alice")))
	require.NoError(t, s.LogAccess("alice"))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	authorized, err := reopened.IsAuthorized("alice")
	require.NoError(t, err)
	assert.True(t, authorized)
	logged, err := reopened.AccessLog()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, logged)
}

func TestBoltStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		return s
	})
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, errFromAdd(s.AddUser("alice")))
	require.NoError(t, s.LogAccess("alice"))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	users, err := reopened.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
	logged, err := reopened.AccessLog()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, logged)
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "alice", NormalizeHandle("@alice"))
	assert.Equal(t, "alice", NormalizeHandle("  alice "))
	assert.Equal(t, "", NormalizeHandle("@"))
	assert.Equal(t, "", NormalizeHandle("  "))
}
