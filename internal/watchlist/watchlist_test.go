package watchlist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-movie-watchlist/internal/db"
	"github.com/justestif/go-movie-watchlist/internal/dbtest"
)

func listTitles(t *testing.T, s *Service) []string {
	t.Helper()
	entries, err := s.List(context.Background())
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "Dune", want: "Dune"},
		{name: "trimmed", in: "  Heat\t", want: "Heat"},
		{name: "unicode", in: "千と千尋の神隠し", want: "千と千尋の神隠し"},
		{name: "max length", in: strings.Repeat("x", MaxTitleLength), want: strings.Repeat("x", MaxTitleLength)},
		{name: "empty", in: "", wantErr: ErrEmptyTitle},
		{name: "spaces", in: "   ", wantErr: ErrEmptyTitle},
		{name: "newlines and tabs", in: "\n\t \r\n", wantErr: ErrEmptyTitle},
		{name: "too long", in: strings.Repeat("x", MaxTitleLength+1), wantErr: ErrTitleTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTitle(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrInvalidTitle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid titles appear in list", func(t *testing.T) {
		s := New(dbtest.Open(t))
		for _, title := range []string{"Dune", "Heat", "Alien", "Dune"} {
			entry, err := s.Create(ctx, title)
			require.NoError(t, err)
			assert.NotZero(t, entry.ID)
		}
		assert.Equal(t, []string{"Dune", "Heat", "Alien", "Dune"}, listTitles(t, s))
	})

	t.Run("blank titles leave the list unchanged", func(t *testing.T) {
		s := New(dbtest.Open(t))
		_, err := s.Create(ctx, "Heat")
		require.NoError(t, err)

		for _, title := range []string{"", " ", "\t\n"} {
			_, err := s.Create(ctx, title)
			assert.ErrorIs(t, err, ErrEmptyTitle)
		}
		assert.Equal(t, []string{"Heat"}, listTitles(t, s))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.Open(t))

	entry, err := s.Create(ctx, "Dune")
	require.NoError(t, err)

	updated, err := s.Update(ctx, entry.ID, " Dune: Part Two ")
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part Two", updated.Title)

	_, err = s.Update(ctx, entry.ID, "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	got, err := s.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part Two", got.Title, "rejected update must not change the title")

	_, err = s.Update(ctx, 999, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(ctx, 999, "")
	assert.ErrorIs(t, err, ErrNotFound, "missing entry wins over validation")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.Open(t))

	keep, err := s.Create(ctx, "Heat")
	require.NoError(t, err)
	drop, err := s.Create(ctx, "Alien")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, drop.ID))
	assert.Equal(t, []string{"Heat"}, listTitles(t, s))

	err = s.Delete(ctx, drop.ID)
	assert.ErrorIs(t, err, ErrNotFound, "second delete reports not found")
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, 12345), ErrNotFound)
	assert.Equal(t, []string{"Heat"}, listTitles(t, s))

	_, err = s.Get(ctx, keep.ID)
	assert.NoError(t, err)
}
