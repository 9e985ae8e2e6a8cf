// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"database/sql"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/pkg/types"
)

func testRecord(id string) *types.Record {
	return &types.Record{
		Leader: "00000nam a2200000 i 4500",
		Fields: []types.Field{
			types.NewControlField("001", id),
			types.NewDataField("245", types.Subfield{Code: 'a', Value: "Válka s mloky /"}),
			types.NewDataField("964", types.Subfield{Code: 'a', Value: "B45"}),
		},
	}
}

func testRow(source string, figures ...string) types.Row {
	vals := make([]types.Value, len(figures))
	for i, f := range figures {
		vals[i] = types.Text(f)
	}
	return types.Row{
		Source: source,
		Columns: []types.Column{
			{Name: "title", Values: []types.Value{types.Text("Válka s mloky")}},
			{Name: "author code", Values: []types.Value{types.Absent()}},
			{Name: "figures", Values: vals},
		},
	}
}

var testColumns = []string{"title", "author code", "figures"}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "ucla_CLE-I.mrc"), Path(types.OutputConfig{Dir: "out", Prefix: "ucla"}, "CLE-I", "mrc"))
	assert.Equal(t, "B.csv", Path(types.OutputConfig{}, "B", "csv"))
}

func TestRecordFileBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.mrc")
	rf, err := CreateRecordFile(path, types.FormatBinary)
	require.NoError(t, err)
	require.NoError(t, rf.Write(testRecord("rec-1")))
	require.NoError(t, rf.Write(testRecord("rec-2")))
	require.NoError(t, rf.Close())

	f, err := marc.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	for {
		rec, err := f.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ids = append(ids, rec.ControlNumber())
	}
	assert.Equal(t, []string{"rec-1", "rec-2"}, ids)
}

func TestRecordFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.mrk")
	rf, err := CreateRecordFile(path, types.FormatText)
	require.NoError(t, err)
	require.NoError(t, rf.Write(testRecord("rec-1")))
	require.NoError(t, rf.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=001  rec-1\n")
	assert.Contains(t, string(data), "=964  \\\\$aB45\n")
}

func TestRecordFileRejectsUnencodable(t *testing.T) {
	rf, err := CreateRecordFile(filepath.Join(t.TempDir(), "x.mrc"), types.FormatBinary)
	require.NoError(t, err)
	defer rf.Close()

	bad := &types.Record{Fields: []types.Field{types.NewControlField("00", "x")}}
	assert.ErrorIs(t, rf.Write(bad), marc.ErrInvalidTag)
	long := testRecord("rec-3")
	long.Fields = append(long.Fields, types.NewDataField("520", types.Subfield{Code: 'a', Value: strings.Repeat("x", 10000)}))
	assert.ErrorIs(t, rf.Write(long), marc.ErrFieldTooLong)
	assert.NoError(t, rf.Write(testRecord("rec-2")), "a rejected record does not poison the file")
}

func TestCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.csv")
	c, err := CreateCSV(path, testColumns, ';', Flat{Delimiter: "$", AbsentMarker: "NA"})
	require.NoError(t, err)
	require.NoError(t, c.Write(testRow("rec-1", "Fox", "Wolf", "Bear")))
	require.NoError(t, c.Write(testRow("rec-2")))
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = ';'
	lines, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"title", "author code", "figures"},
		{"Válka s mloky", "NA", "Fox$Wolf$Bear"},
		{"Válka s mloky", "NA", ""},
	}, lines)
}

func TestCSVColumnMismatch(t *testing.T) {
	c, err := CreateCSV(filepath.Join(t.TempDir(), "x.csv"), []string{"title"}, 0, Flat{})
	require.NoError(t, err)
	defer c.Close()
	assert.Error(t, c.Write(testRow("rec-1")))

	_, err = CreateCSV(filepath.Join(t.TempDir(), "y.csv"), nil, 0, Flat{})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.db")
	tbl, err := OpenTable(path, testColumns, Flat{Delimiter: ";"})
	require.NoError(t, err)
	require.NoError(t, tbl.Write(testRow("rec-1", "Fox", "Wolf", "Bear")))
	require.NoError(t, tbl.Write(testRow("rec-2", "Owl")))
	require.NoError(t, tbl.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM rows`).Scan(&n))
	assert.Equal(t, 2, n)

	var figures string
	var code sql.NullString
	require.NoError(t, db.QueryRow(`SELECT figures, author_code FROM rows WHERE source = ?`, "rec-1").Scan(&figures, &code))
	assert.Equal(t, "Fox;Wolf;Bear", figures)
	assert.False(t, code.Valid, "a lone absent value is stored as NULL")

	require.NoError(t, db.QueryRow(`SELECT count(*) FROM row_values WHERE column_name = 'figures'`).Scan(&n))
	assert.Equal(t, 4, n)

	var pos int
	require.NoError(t, db.QueryRow(`SELECT position FROM row_values WHERE value = 'Bear'`).Scan(&pos))
	assert.Equal(t, 2, pos)
}

func TestTableRollsBackPartialRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.db")
	tbl, err := OpenTable(path, testColumns, Flat{})
	require.NoError(t, err)
	require.NoError(t, tbl.Write(testRow("rec-1", "Fox")))

	// Without row_values the second insert of every row fails after the
	// rows insert has succeeded.
	_, err = tbl.tx.Exec(`DROP TABLE row_values`)
	require.NoError(t, err)
	assert.Error(t, tbl.Write(testRow("rec-2", "Wolf")))
	require.NoError(t, tbl.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var sources []string
	rows, err := db.Query(`SELECT source FROM rows ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		sources = append(sources, s)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"rec-1"}, sources, "the failed row must not be committed")
}

func TestTableReopenTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucla_B.db")
	for i := 0; i < 2; i++ {
		tbl, err := OpenTable(path, testColumns, Flat{})
		require.NoError(t, err)
		require.NoError(t, tbl.Write(testRow("rec-1", "Fox")))
		require.NoError(t, tbl.Close())
	}

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM rows`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestIdent(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"title", "title", false},
		{"Author Code", "author_code", false},
		{"Žánr", "zanr", false},
		{"  year (008) ", "year_008", false},
		{"773t", "c_773t", false},
		{"---", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Ident(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrColumnName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := idents([]string{"author code", "Author-Code"})
	assert.ErrorIs(t, err, ErrColumnName)

	ids, err := idents([]string{"source", "title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"col_source", "title"}, ids)
}

func TestOpenRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ucla")
	out := types.OutputConfig{Dir: dir, Prefix: "ucla", Records: types.FormatText}

	r, err := OpenRecords(out, []string{"B", "RET"}, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Route([]string{"RET"}, testRecord("rec-1")))
	require.NoError(t, r.Close())

	for _, name := range []string{"ucla_B.mrk", "ucla_RET.mrk"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	_, err = OpenRecords(types.OutputConfig{Dir: dir, Records: "pdf"}, []string{"B"}, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOpenRows(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []types.TableFormat{types.TableCSV, types.TableSQLite} {
		out := types.OutputConfig{Dir: dir, Prefix: "ucla", Table: format}
		r, err := OpenRows(out, []string{"B", "CLE-I"}, testColumns, Flat{}, nil)
		require.NoError(t, err, format)
		assert.Empty(t, r.Route([]string{"B", "CLE-I"}, testRow("rec-1", "Fox")))
		require.NoError(t, r.Close())
	}
	for _, name := range []string{"ucla_B.csv", "ucla_CLE-I.csv", "ucla_B.db", "ucla_CLE-I.db"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	_, err := OpenRows(types.OutputConfig{Dir: dir, Table: "xlsx"}, []string{"B"}, testColumns, Flat{}, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
