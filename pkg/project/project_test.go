package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	fs, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(fs)
}

func TestCreate_StartsInCreatedStatus(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("rumor-spread")

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, p.Status)
	assert.Equal(t, "rumor-spread", p.DisplayName)
	assert.NotEmpty(t, p.ID)
}

func TestSaveAndGet_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	p.Requirement = "simulate workplace rumor spread"
	p.Status = StatusOntologyGenerated
	require.NoError(t, s.Save(p))

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "simulate workplace rumor spread", got.Requirement)
	assert.Equal(t, StatusOntologyGenerated, got.Status)
}

func TestGet_UnknownIDIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("does-not-exist")

	require.Error(t, err)
	assert.Equal(t, orcherrors.NotFound, orcherrors.KindOf(err))
}

func TestDelete_RemovesDirectory(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	require.NoError(t, s.Delete(p.ID))
	_, err = s.Get(p.ID)
	assert.Error(t, err)
}

func TestList_SortedDescendingAndLimited(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("a")
	require.NoError(t, err)
	_, err = s.Create("b")
	require.NoError(t, err)
	_, err = s.Create("c")
	require.NoError(t, err)

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "List must be sorted by created-at descending")
	}

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// ============================================================================
// SaveFile extension allowlist
// ============================================================================

func TestSaveFile_AcceptsAllowedExtensions(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	for _, name := range []string{"doc.pdf", "notes.md", "notes.markdown", "raw.txt"} {
		fd, err := s.SaveFile(p.ID, Upload{OriginalFilename: name, Content: []byte("hello")})
		require.NoError(t, err)
		assert.Equal(t, name, fd.OriginalFilename)
		assert.Equal(t, int64(5), fd.Size)
		assert.NotEqual(t, name, fd.SavedFilename) // random short filename
	}
}

func TestSaveFile_RejectsDisallowedExtension(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	_, err = s.SaveFile(p.ID, Upload{OriginalFilename: "malware.exe", Content: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, orcherrors.Validation, orcherrors.KindOf(err))
}

// ============================================================================
// Extracted text
// ============================================================================

func TestExtractedText_SaveAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	require.NoError(t, s.SaveExtractedText(p.ID, "Alice works for Acme. Bob studies at MIT."))

	got, err := s.GetExtractedText(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice works for Acme. Bob studies at MIT.", got)
}

func TestExtractedText_MissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create("x")
	require.NoError(t, err)

	_, err = s.GetExtractedText(p.ID)
	require.Error(t, err)
	assert.Equal(t, orcherrors.NotFound, orcherrors.KindOf(err))
}
