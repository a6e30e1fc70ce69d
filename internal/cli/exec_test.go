package cli

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/store"
)

func addItem(t *testing.T, db, title string, args ...string) ItemSummary {
	t.Helper()
	var it ItemSummary
	decodeData(t, &it, append([]string{"items", "add", "--db", db, "--title", title}, args...)...)
	return it
}

func TestExecCommand_AddCitation(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")
	it := addItem(t, db, "Waterbirds", "--author", "Smith, Robert", "--year", "2019")
	path := writeDoc(t, dir, "paper.yaml", emptyDoc)

	var res ExecResult
	decodeData(t, &res, "exec", "addEditCitation", path, "--db", db, "--cite", fmt.Sprint(it.ID))

	assert.Equal(t, "paper", res.DocID)
	assert.Equal(t, 1, res.Fields)
	assert.Equal(t, []string{dialog.DocPrefs, dialog.QuickFormat}, res.Dialogs)
	assert.True(t, res.Saved)

	doc, err := memhost.Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, "(Smith, 2019)", doc.FieldAt(0).PlainText())

	data, err := docdata.Deserialize(doc.Data())
	require.NoError(t, err)
	assert.Equal(t, "http://www.zotero.org/styles/cell", data.Style.StyleID)
	assert.NotEmpty(t, data.SessionID)
}

func TestExecCommand_TextOutputAndDryRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")
	path := writeDoc(t, dir, "notes.yaml", emptyDoc)

	out, _, err := runCLI(t, "exec", "refresh", path, "--db", db, "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "refresh notes: ok (0 fields)\n", out)

	doc, err := memhost.Load(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Data(), "dry run leaves the file alone")
}

func TestExecCommand_CancelledCitationIsNotSaved(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")
	path := writeDoc(t, dir, "paper.yaml", emptyDoc)

	out, _, err := runCLI(t, "exec", "addCitation", path, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [USER_CANCELLED]")

	doc, err := memhost.Load(path)
	require.NoError(t, err)
	assert.Zero(t, doc.Len())
	assert.Empty(t, doc.Data())

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	records, err := st.ListJournal(t.Context(), "paper")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cancelled", records[0].Status)
}

func TestExecCommand_StyleFlag(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")
	path := writeDoc(t, dir, "paper.yaml", emptyDoc)

	_, _, err := runCLI(t, "exec", "setDocPrefs", path, "--db", db,
		"--style", "http://www.zotero.org/styles/chicago-note-bibliography")
	require.NoError(t, err)

	doc, err := memhost.Load(path)
	require.NoError(t, err)
	data, err := docdata.Deserialize(doc.Data())
	require.NoError(t, err)
	assert.Equal(t, "http://www.zotero.org/styles/chicago-note-bibliography", data.Style.StyleID)
	assert.Equal(t, docdata.NoteTypeFootnote, data.Prefs.NoteType)
}

func TestExecCommand_MalformedDataAlerts(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")
	path := writeDoc(t, dir, "broken.yaml", "data: \"{not json\"\nfields: []\n")

	out, errOut, err := runCLI(t, "exec", "refresh", path, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [MALFORMED_DOCUMENT_DATA]")
	assert.Contains(t, errOut, "error [broken]")
}

func TestExecCommand_BadInput(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "lib.db")

	_, _, err := runCLI(t, "exec", "frobnicate", filepath.Join(dir, "x.yaml"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)

	_, _, err = runCLI(t, "exec", "refresh", filepath.Join(dir, "missing.yaml"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestDocIDFor(t *testing.T) {
	assert.Equal(t, "paper", docIDFor("/tmp/drafts/paper.yaml"))
	assert.Equal(t, "notes.v2", docIDFor("notes.v2.yml"))
}
