package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/env-validator/internal/types"
)

func homeItem() types.ValidationItem {
	return types.ValidationItem{
		IssueType: "content_type",
		Item:      types.Reference{Codename: "home"},
		Language:  types.Reference{Codename: "default"},
		Issues: []types.Issue{
			{Element: types.Reference{Codename: "title"}, Messages: []string{"Required", "Too long"}},
		},
	}
}

func sampleItems() []types.ValidationItem {
	return []types.ValidationItem{
		homeItem(),
		{
			IssueType: "variant_issue",
			Item:      types.Reference{Codename: "about_us"},
			Language:  types.Reference{Codename: "es"},
			Issues: []types.Issue{
				{Element: types.Reference{Codename: "body"}, Messages: []string{"Contains \"broken\" link"}},
				{Element: types.Reference{Codename: "rank"}, Messages: []string{"42"}},
			},
		},
		{
			IssueType: "variant_issue",
			Item:      types.Reference{Codename: "empty"},
			Language:  types.Reference{Codename: "default"},
		},
	}
}

func TestFlatten_HomeScenario(t *testing.T) {
	records := Flatten([]types.ValidationItem{homeItem()})

	require.Len(t, records, 1)
	assert.Equal(t, types.ExportRecord{
		IssueType: "content_type",
		Item:      "home",
		Language:  "default",
		Element:   "title",
		Message:   "Required& Too long",
	}, records[0])
}

func TestFlatten_CountAndOrder(t *testing.T) {
	items := sampleItems()
	records := Flatten(items)

	assert.Len(t, records, types.CountIssues(items))
	require.Len(t, records, 3)
	assert.Equal(t, "title", records[0].Element)
	assert.Equal(t, "body", records[1].Element)
	assert.Equal(t, "rank", records[2].Element)
	assert.Equal(t, "about_us", records[1].Item)
	assert.Equal(t, "es", records[2].Language)
}

func TestFlatten_SingleMessageUnchanged(t *testing.T) {
	records := Flatten(sampleItems())
	assert.Equal(t, "Contains \"broken\" link", records[1].Message)
	assert.Equal(t, "42", records[2].Message)
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten(nil))
	assert.Empty(t, Flatten([]types.ValidationItem{}))
}

func TestExport_EmptyWritesNothing(t *testing.T) {
	base := filepath.Join(t.TempDir(), "result")

	result, err := Export(base, nil)
	require.NoError(t, err)
	assert.False(t, result.Written())
	assert.Empty(t, result.Records)

	assert.NoFileExists(t, base+".csv")
	assert.NoFileExists(t, base+".json")
}

func TestExport_WritesBothFiles(t *testing.T) {
	base := filepath.Join(t.TempDir(), "result")

	result, err := Export(base, sampleItems())
	require.NoError(t, err)
	assert.True(t, result.Written())
	assert.Equal(t, base+".csv", result.CSVPath)
	assert.Equal(t, base+".json", result.JSONPath)
	assert.FileExists(t, result.CSVPath)
	assert.FileExists(t, result.JSONPath)
	assert.Len(t, result.Records, 3)
}

func TestWriteCSV_AlwaysQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	records := Flatten(sampleItems())

	require.NoError(t, WriteCSV(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"Issue type","Item","language","Element","Message"`, lines[0])
	assert.Equal(t, `"content_type","home","default","title","Required& Too long"`, lines[1])
	assert.Equal(t, `"variant_issue","about_us","es","body","Contains ""broken"" link"`, lines[2])
	assert.Equal(t, `"variant_issue","about_us","es","rank","42"`, lines[3])
}

func TestWriteCSV_ParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	records := Flatten(sampleItems())
	require.NoError(t, WriteCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)
	assert.Equal(t, []string{"Issue type", "Item", "language", "Element", "Message"}, rows[0])
	for i, rec := range records {
		assert.Equal(t, recordRow(rec), rows[i+1])
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	records := Flatten(sampleItems())

	require.NoError(t, WriteJSON(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []types.ExportRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, records, decoded)
}

func TestWriteJSON_CompactAndUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	records := Flatten([]types.ValidationItem{homeItem()})

	require.NoError(t, WriteJSON(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"issue_type":"content_type","item":"home","language":"default","element":"title","message":"Required& Too long"}]`,
		string(data))
}

func TestMarshalRecords_NilIsEmptyArray(t *testing.T) {
	data, err := MarshalRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExport_CSVFailureSkipsJSON(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "result")
	// A directory in place of the CSV file makes the CSV write fail.
	require.NoError(t, os.Mkdir(base+".csv", 0755))

	result, err := Export(base, sampleItems())
	require.Error(t, err)

	var writeErr *FileWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, base+".csv", writeErr.Path)
	assert.False(t, result.Written())
	assert.NoFileExists(t, base+".json")
}

func TestWriteJSON_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")

	err := WriteJSON(path, Flatten(sampleItems()))
	require.Error(t, err)

	var writeErr *FileWriteError
	assert.ErrorAs(t, err, &writeErr)
	assert.Contains(t, err.Error(), "failed to write")
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "validation-result.csv", CSVFilename("validation-result"))
	assert.Equal(t, "out/run.json", JSONFilename("out/run"))
}
