package cli

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/csl"
)

func TestParseName(t *testing.T) {
	assert.Equal(t, csl.Name{Family: "Smith", Given: "Robert"}, parseName("Smith, Robert"))
	assert.Equal(t, csl.Name{Literal: "World Health Organization"}, parseName(" World Health Organization "))
	assert.Equal(t, csl.Name{Family: "Plato"}, parseName("Plato,"))
}

func TestItemsCommand_AddAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "lib.db")

	var added ItemSummary
	decodeData(t, &added, "items", "add", "--db", db,
		"--title", "Waterbirds", "--author", "Smith, Robert", "--author", "Jones, Ann", "--year", "2019")
	assert.NotZero(t, added.ID)
	assert.Len(t, added.Key, 8)
	assert.Contains(t, added.URI, "/users/local/"+Library+"/items/"+added.Key)
	assert.Equal(t, "Smith; Jones", added.Author)
	assert.Equal(t, "2019", added.Year)

	var listed []ItemSummary
	decodeData(t, &listed, "items", "list", "--db", db)
	require.Len(t, listed, 1)
	assert.Equal(t, added, listed[0])

	out, _, err := runCLI(t, "items", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, strconv.FormatInt(added.ID, 10)+"\t"+added.Key+"\tSmith; Jones\t2019\tWaterbirds")
}

func TestItemsCommand_AddRequiresTitle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "lib.db")
	_, _, err := runCLI(t, "items", "add", "--db", db, "--author", "Smith, Robert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestItemsCommand_ListEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "lib.db")
	out, _, err := runCLI(t, "items", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No items.\n", out)
}
