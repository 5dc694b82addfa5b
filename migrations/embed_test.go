package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapFS(names ...string) fstest.MapFS {
	filesystem := fstest.MapFS{}
	for _, name := range names {
		filesystem[name] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	}

	return filesystem
}

func TestEmbeddedSetValidates(t *testing.T) {
	set := NewSet(nil)

	require.NoError(t, set.Validate())

	files, err := set.List()
	require.NoError(t, err)
	assert.NotEmpty(t, files)
	assert.Len(t, files, 2*set.MaxVersion())
}

func TestListIgnoresNonConformingFiles(t *testing.T) {
	set := NewSet(mapFS(
		"001_base.up.sql",
		"001_base.down.sql",
		"notes.sql",
		"README.md",
	))

	files, err := set.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_base.down.sql", "001_base.up.sql"}, files)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     *Info
		wantErr  bool
	}{
		{
			name:     "up migration",
			filename: "003_exclusions.up.sql",
			want:     &Info{Sequence: 3, Name: "exclusions", Direction: "up", Filename: "003_exclusions.up.sql"},
		},
		{
			name:     "down migration",
			filename: "001_saved_searches.down.sql",
			want:     &Info{Sequence: 1, Name: "saved_searches", Direction: "down", Filename: "001_saved_searches.down.sql"},
		},
		{
			name:     "missing zero padding",
			filename: "1_base.up.sql",
			wantErr:  true,
		},
		{
			name:     "no direction",
			filename: "001_base.sql",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Parse(tt.filename)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestValidateRejectsUnpairedMigrations(t *testing.T) {
	set := NewSet(mapFS(
		"001_base.up.sql",
		"001_base.down.sql",
		"002_orphan.up.sql",
	))

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing down migration for 002_orphan")
}

func TestValidateRejectsSequenceGap(t *testing.T) {
	set := NewSet(mapFS(
		"001_base.up.sql",
		"001_base.down.sql",
		"003_later.up.sql",
		"003_later.down.sql",
	))

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap in migration sequence")
}

func TestValidateRejectsSequenceNotStartingAtOne(t *testing.T) {
	set := NewSet(mapFS(
		"002_base.up.sql",
		"002_base.down.sql",
	))

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should start with 001")
}

func TestValidateDetectsModifiedContent(t *testing.T) {
	filesystem := mapFS("001_base.up.sql", "001_base.down.sql")
	set := NewSet(filesystem)

	require.NoError(t, set.Validate())

	filesystem["001_base.up.sql"] = &fstest.MapFile{Data: []byte("SELECT 2;")}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestValidateRejectsEmptySet(t *testing.T) {
	set := NewSet(fstest.MapFS{})

	require.Error(t, set.Validate())
}
