// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/marcsplit/internal/config"
	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/internal/route"
	"github.com/pdiddy/marcsplit/internal/sink"
	"github.com/pdiddy/marcsplit/internal/tally"
	"github.com/pdiddy/marcsplit/pkg/types"
)

func sf(code byte, v string) types.Subfield {
	return types.Subfield{Code: code, Value: v}
}

func rec(id string, fields ...types.Field) *types.Record {
	all := []types.Field{
		types.NewControlField("FMT", "BK"),
		types.NewControlField("001", id),
		types.NewControlField("008", "800101s1999    xr "),
		types.NewDataField("599", sf('a', "CLB-CPK")),
	}
	return &types.Record{Leader: "00000nam a2200000 i 4500", Fields: append(all, fields...)}
}

func code(c string) types.Field {
	return types.NewDataField("964", sf('a', c))
}

// sliceSource replays records, then io.EOF. A non-nil entry in errs is
// returned in place of the record at that position.
type sliceSource struct {
	recs []*types.Record
	errs map[int]error
	i    int
}

func (s *sliceSource) Next() (*types.Record, error) {
	if s.i >= len(s.recs) {
		return nil, io.EOF
	}
	i := s.i
	s.i++
	if err, ok := s.errs[i]; ok {
		return nil, err
	}
	return s.recs[i], nil
}

type memSink[T any] struct {
	got    []T
	fail   func(T) error
	closed int
}

func (m *memSink[T]) Write(u T) error {
	if m.fail != nil {
		if err := m.fail(u); err != nil {
			return err
		}
	}
	m.got = append(m.got, u)
	return nil
}

func (m *memSink[T]) Close() error {
	m.closed++
	return nil
}

func recordRouter(t *testing.T, log *zap.Logger, labels []string) (*route.Router[*types.Record], map[string]*memSink[*types.Record]) {
	t.Helper()
	r := route.New[*types.Record](log)
	sinks := make(map[string]*memSink[*types.Record], len(labels))
	for _, l := range labels {
		sinks[l] = &memSink[*types.Record]{}
		require.NoError(t, r.Add(l, sinks[l]))
	}
	return r, sinks
}

func rowRouter(t *testing.T, log *zap.Logger, labels []string) (*route.Router[types.Row], map[string]*memSink[types.Row]) {
	t.Helper()
	r := route.New[types.Row](log)
	sinks := make(map[string]*memSink[types.Row], len(labels))
	for _, l := range labels {
		sinks[l] = &memSink[types.Row]{}
		require.NoError(t, r.Add(l, sinks[l]))
	}
	return r, sinks
}

func ids(recs []*types.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ControlNumber()
	}
	return out
}

func TestLabels(t *testing.T) {
	basic, _ := config.Builtin(config.Basic)
	assert.Equal(t, []string{"B", "RET", "SMZ", "INT", "CLE", "TRL"}, Labels(basic))

	ext, _ := config.Builtin(config.Extended)
	assert.Equal(t, []string{"1945", "ALKARO", "RET", "SMZ", "INT", "TRL", "CLE-I", "CLE-II"}, Labels(ext))

	ext.Split.KeepParent = true
	ext.Fallback = "OTHER"
	assert.Equal(t, []string{"1945", "ALKARO", "RET", "SMZ", "INT", "TRL", "CLE", "CLE-I", "CLE-II", "OTHER"}, Labels(ext))
}

func TestRunExtendedProfile(t *testing.T) {
	p, err := config.Builtin(config.Extended)
	require.NoError(t, err)
	records, sinks := recordRouter(t, nil, Labels(p))

	pl, err := New(p, Options{Records: records})
	require.NoError(t, err)

	outsider := &types.Record{Fields: []types.Field{types.NewControlField("001", "outsider"), code("B45")}}
	src := &sliceSource{recs: []*types.Record{
		rec("r1", code("B45")),
		rec("r2", code("SMZ")),
		rec("r3", code("CLE"), types.NewDataField("035", sf('a', "(OCoLC)1234567"))),
		rec("r4", code("CLE"), types.NewDataField("035", sf('a', "(OCoLC)2345678")), types.NewDataField("035", sf('a', "bad"))),
		rec("r5", code("XYZ")),
		outsider,
	}}

	summary, err := pl.Run(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, pl.Close())

	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids(sinks["1945"].got))
	assert.Equal(t, []string{"r2"}, ids(sinks["SMZ"].got))
	assert.Equal(t, []string{"r3"}, ids(sinks["CLE-I"].got))
	assert.Equal(t, []string{"r4"}, ids(sinks["CLE-II"].got))
	assert.Empty(t, sinks["RET"].got)

	assert.Equal(t, 6, summary.Read)
	assert.Equal(t, 1, summary.Filtered)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 4, summary.Routed)
	assert.Equal(t, 1, summary.ParseErrors)
	assert.False(t, summary.HasFailures())

	for _, s := range sinks {
		assert.Equal(t, 1, s.closed)
	}
}

func TestRunStripsLeaderAndFormatOnce(t *testing.T) {
	p, _ := config.Builtin(config.Basic)
	records, sinks := recordRouter(t, nil, Labels(p))
	pl, err := New(p, Options{Records: records})
	require.NoError(t, err)

	r := rec("r1", code("B45"), code("TRL"))
	r.Fields = append([]types.Field{types.NewControlField("LDR", "x")}, r.Fields...)
	pl.Process(r)

	require.Len(t, sinks["B"].got, 1)
	require.Len(t, sinks["TRL"].got, 1)
	assert.Same(t, sinks["B"].got[0], sinks["TRL"].got[0], "one stripped copy is shared by every destination")
	for _, f := range sinks["B"].got[0].Fields {
		assert.NotContains(t, []string{"LDR", "FMT"}, f.Tag)
	}
	assert.Len(t, r.FieldsByTag("FMT"), 1, "the source record is left untouched")
}

func TestRunFallback(t *testing.T) {
	p, _ := config.Builtin(config.Basic)
	p.Fallback = "OTHER"
	records, sinks := recordRouter(t, nil, Labels(p))
	pl, err := New(p, Options{Records: records})
	require.NoError(t, err)

	pl.Process(rec("r1", code("XYZ")))
	pl.Process(rec("r2"))

	assert.Equal(t, []string{"r1", "r2"}, ids(sinks["OTHER"].got))
	s := pl.Summary()
	assert.Equal(t, 2, s.Unmatched)
	assert.Equal(t, 2, s.Routed)
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	p, _ := config.Builtin(config.Basic)
	rows, sinks := rowRouter(t, log, Labels(p))
	tl := tally.New([]string{"figures"}, "year")
	pl, err := New(p, Options{Log: log, Rows: rows, Tally: tl})
	require.NoError(t, err)

	broken := rec("r3", code("B45"), types.NewDataField("245"))
	src := &sliceSource{
		recs: []*types.Record{
			rec("r1", code("B45"), types.NewDataField("600", sf('a', "Fox")), types.NewDataField("600", sf('a', "Wolf"))),
			nil,
			broken,
			rec("r4", code("RET"), types.NewDataField("600", sf('a', "Fox,"))),
			rec("r5", code("B12")),
		},
		errs: map[int]error{1: &marc.RecordError{Index: 1, Leader: "bad", Err: marc.ErrBadDirectory}},
	}

	summary, err := pl.Run(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, pl.Close())

	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, 1, summary.Discarded)
	assert.Equal(t, 3, summary.Rows)
	assert.True(t, summary.HasFailures())
	assert.Len(t, sinks["B"].got, 2)
	assert.Len(t, sinks["RET"].got, 1)

	assert.Equal(t, 1, logs.FilterMessage("pipeline: skipping malformed record").Len())
	discarded := logs.FilterMessage("pipeline: discarding row").All()
	require.Len(t, discarded, 1)
	assert.Equal(t, "r3", discarded[0].ContextMap()["record"])

	assert.Equal(t, []tally.Count{{Value: "Fox", Count: 2}, {Value: "Wolf", Count: 1}}, tl.Top("figures", 0))
}

func TestRunSinkIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	p, _ := config.Builtin(config.Extended)

	records, sinks := recordRouter(t, log, Labels(p))
	diskFull := errors.New("disk full")
	sinks["1945"].fail = func(r *types.Record) error {
		if r.ControlNumber() == "k" {
			return diskFull
		}
		return nil
	}
	pl, err := New(p, Options{Log: log, Records: records})
	require.NoError(t, err)

	summary, err := pl.Run(context.Background(), &sliceSource{recs: []*types.Record{
		rec("k", code("SMZ")),
		rec("k+1", code("SMZ")),
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "k+1"}, ids(sinks["SMZ"].got), "SMZ still receives record k")
	assert.Equal(t, []string{"k+1"}, ids(sinks["1945"].got), "record k+1 is processed normally")
	assert.Equal(t, 1, summary.WriteErrors)
	assert.Equal(t, 1, logs.FilterMessage("route: write failed").Len())

	var stats route.Stats
	for _, s := range summary.Records {
		if s.Label == "1945" {
			stats = s
		}
	}
	assert.Equal(t, route.Stats{Label: "1945", Written: 1, Failed: 1}, stats)
}

func TestRunStreamErrorStillClosesSinks(t *testing.T) {
	p, _ := config.Builtin(config.Basic)
	records, sinks := recordRouter(t, nil, Labels(p))
	pl, err := New(p, Options{Records: records})
	require.NoError(t, err)

	truncated := errors.New("unexpected end of input")
	src := &sliceSource{
		recs: []*types.Record{rec("r1", code("RET")), nil, rec("r3", code("RET"))},
		errs: map[int]error{1: truncated},
	}

	func() {
		defer pl.Close()
		summary, err := pl.Run(context.Background(), src)
		assert.ErrorIs(t, err, truncated)
		assert.Equal(t, 1, summary.Routed)
	}()

	assert.Equal(t, []string{"r1"}, ids(sinks["RET"].got))
	for _, s := range sinks {
		assert.Equal(t, 1, s.closed)
	}
}

func TestRunCancelled(t *testing.T) {
	p, _ := config.Builtin(config.Basic)
	pl, err := New(p, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pl.Run(ctx, &sliceSource{recs: []*types.Record{rec("r1")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresFieldsForRows(t *testing.T) {
	p, _ := config.Builtin(config.Basic)
	p.Fields = nil
	_, err := New(p, Options{Tally: tally.New(nil, "")})
	assert.Error(t, err)
}

func TestRunWritesFiles(t *testing.T) {
	dir := t.TempDir()
	p, _ := config.Builtin(config.Extended)
	out := types.OutputConfig{Dir: dir, Prefix: "ucla", Records: types.FormatBinary, Table: types.TableCSV}

	records, err := sink.OpenRecords(out, Labels(p), nil)
	require.NoError(t, err)
	cols := []string{}
	for _, f := range p.Fields {
		cols = append(cols, f.Column)
	}
	rows, err := sink.OpenRows(out, Labels(p), cols, sink.Flat{Delimiter: p.Delimiter}, nil)
	require.NoError(t, err)

	pl, err := New(p, Options{Records: records, Rows: rows})
	require.NoError(t, err)
	_, err = pl.Run(context.Background(), &sliceSource{recs: []*types.Record{
		rec("r1", code("CLE"), types.NewDataField("035", sf('a', "(OCoLC)1234567"))),
	}})
	require.NoError(t, err)
	require.NoError(t, pl.Close())

	f, err := marc.Open(filepath.Join(dir, "ucla_CLE-I.mrc"))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ControlNumber())
	assert.Empty(t, got.FieldsByTag("FMT"))

	assert.FileExists(t, filepath.Join(dir, "ucla_1945.csv"))
}

func TestSummaryPrint(t *testing.T) {
	s := Summary{
		Read: 5, Malformed: 1, Routed: 3, Unmatched: 1, Filtered: 1,
		Rows: 3, WriteErrors: 1,
		Records: []route.Stats{{Label: "B", Written: 3}},
	}
	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Run summary: 3 routed, 1 unmatched, 1 filtered, 1 malformed (total: 6)")
	assert.Contains(t, out, "Rows: 3 extracted, 0 discarded")
	assert.Contains(t, out, "Errors: 0 identifier parse, 1 write")
	assert.Contains(t, out, "records B")
}
