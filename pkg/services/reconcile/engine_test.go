package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func obs(id string, d int, v float64) domain.Observation {
	return domain.Observation{SeriesID: id, Date: day(d), Value: &v}
}

func testTemplate() domain.TemplateDescriptor {
	return domain.TemplateDescriptor{
		Name:       "macro",
		HeaderRow:  1,
		StartRow:   2,
		DateColumn: 0,
		Columns:    map[string]int{"A": 1, "B": 2, "C": 3},
		MainSeries: []string{"A", "B"},
		Merge:      domain.MergeOverwrite,
	}
}

func emptySnapshot() domain.SheetSnapshot {
	return domain.SheetSnapshot{
		Sheet: "Data",
		Rows:  [][]string{{"Date", "A", "B", "C"}},
	}
}

func TestBuildWriteSet_CompletenessGatesCells(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 1, 1.1), obs("A", 2, 1.2), obs("A", 3, 1.3)},
		"B": {obs("B", 2, 2.2), obs("B", 3, 2.3), obs("B", 4, 2.4)},
		"C": {obs("C", 3, 3.3)},
	}

	ws, err := engine.BuildWriteSet(context.Background(), Request{
		Template: testTemplate(),
		Snapshot: emptySnapshot(),
		Fetched:  fetched,
	})
	require.NoError(t, err)

	require.Len(t, ws.Rows, 2, "only dates both main series cover are written")
	assert.Equal(t, "Data", ws.Sheet)
	assert.Equal(t, 2, ws.StartRow)
	assert.Equal(t, 2, ws.NewRows)

	// descending default: newest first
	newest, oldest := ws.Rows[0], ws.Rows[1]
	assert.Equal(t, day(3), newest.Date)
	assert.Equal(t, day(2), oldest.Date)

	assert.Equal(t, "2021-01-03", newest.Cells[0])
	assert.Equal(t, 1.3, newest.Cells[1])
	assert.Equal(t, 2.3, newest.Cells[2])
	assert.Equal(t, 3.3, newest.Cells[3], "supplementary C fills its one eligible date")

	assert.Equal(t, "2021-01-02", oldest.Cells[0])
	assert.Equal(t, 1.2, oldest.Cells[1])
	assert.Equal(t, 2.2, oldest.Cells[2])
	_, hasC := oldest.Cells[3]
	assert.False(t, hasC, "C has no value for date 2 and must leave the cell blank")
}

func TestBuildWriteSet_NoEligibleDates(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 1, 1.1)},
		"B": {obs("B", 2, 2.2)},
	}

	_, err := engine.BuildWriteSet(context.Background(), Request{
		Template: testTemplate(),
		Snapshot: emptySnapshot(),
		Fetched:  fetched,
	})
	require.Error(t, err)
	assert.True(t, errs.IsNoEligibleDates(err))
}

func TestBuildWriteSet_KeepLastOnDuplicateFetch(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.MainSeries = []string{"A"}
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 1, 1.0), obs("A", 1, 9.9)},
	}

	ws, err := engine.BuildWriteSet(context.Background(), Request{
		Template: tpl,
		Snapshot: emptySnapshot(),
		Fetched:  fetched,
	})
	require.NoError(t, err)
	require.Len(t, ws.Rows, 1)
	assert.Equal(t, 9.9, ws.Rows[0].Cells[1], "the later observation wins")
}

func TestBuildWriteSet_OverwriteRefusesTruncation(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{{"Date", "A"}}
	for i := 0; i < 1200; i++ {
		rows = append(rows, []string{start.AddDate(0, 0, i).Format("2006-01-02"), "1.0"})
	}
	snap := domain.SheetSnapshot{Sheet: "Data", Rows: rows}

	observations := make([]domain.Observation, 0, 900)
	for i := 0; i < 900; i++ {
		v := float64(i)
		observations = append(observations, domain.Observation{
			SeriesID: "A",
			Date:     start.AddDate(0, 0, i),
			Value:    &v,
		})
	}
	req := Request{Template: tpl, Snapshot: snap, Fetched: map[string][]domain.Observation{"A": observations}}

	_, err := engine.BuildWriteSet(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsOverwriteRangeAmbiguous(err))

	var trunc *errs.TruncationError
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, 1200, trunc.ExistingRows)
	assert.Equal(t, 900, trunc.WritingRows)

	// explicit authorization turns the refusal into a clear
	req.Template.AllowTruncate = true
	ws, err := engine.BuildWriteSet(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, ws.Rows, 900)
	assert.Equal(t, 300, ws.ClearRows)
	assert.Equal(t, 0, ws.NewRows, "every written date already existed")
}

func TestBuildWriteSet_Insert(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Merge = domain.MergeInsert
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}

	snap := domain.SheetSnapshot{
		Sheet: "Data",
		Rows: [][]string{
			{"Date", "A"},
			{"2021-01-05", "1.5"},
			{"2021-01-04", "1.4"},
		},
	}
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 5, 1.5), obs("A", 6, 1.6), obs("A", 7, 1.7)},
	}

	ws, err := engine.BuildWriteSet(context.Background(), Request{Template: tpl, Snapshot: snap, Fetched: fetched})
	require.NoError(t, err)

	assert.Equal(t, 2, ws.InsertRows, "date 5 already exists and is not re-inserted")
	assert.Equal(t, 2, ws.NewRows)
	require.Len(t, ws.Rows, 2)
	assert.Equal(t, day(7), ws.Rows[0].Date)
	assert.Equal(t, day(6), ws.Rows[1].Date)

	require.NotNil(t, ws.RangeShift)
	assert.Equal(t, "Data", ws.RangeShift.Sheet)
	assert.Equal(t, 2, ws.RangeShift.StartRow)
	assert.Equal(t, 2, ws.RangeShift.Offset)
}

func TestBuildWriteSet_InsertNothingNew(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Merge = domain.MergeInsert
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}

	snap := domain.SheetSnapshot{
		Sheet: "Data",
		Rows: [][]string{
			{"Date", "A"},
			{"2021-01-05", "1.5"},
		},
	}
	fetched := map[string][]domain.Observation{"A": {obs("A", 5, 1.5)}}

	_, err := engine.BuildWriteSet(context.Background(), Request{Template: tpl, Snapshot: snap, Fetched: fetched})
	require.Error(t, err)
	assert.True(t, errs.IsNoEligibleDates(err), "re-running over a current table inserts nothing")
}

func TestBuildWriteSet_AppendDedupesAndSorts(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Merge = domain.MergeAppend
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}

	snap := domain.SheetSnapshot{
		Sheet: "Data",
		Rows: [][]string{
			{"Date", "A"},
			{"2021-01-06", "1.6"},
			{"2021-01-04", "1.4"},
			{"2021-01-05", "stale"},
			{"2021-01-05", "1.5"},
			{"", "orphan note"},
		},
	}
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 5, 5.5), obs("A", 7, 1.7)},
	}

	ws, err := engine.BuildWriteSet(context.Background(), Request{Template: tpl, Snapshot: snap, Fetched: fetched})
	require.NoError(t, err)

	require.Len(t, ws.Rows, 4, "duplicate and undated rows collapse")
	assert.Equal(t, 1, ws.NewRows, "only date 7 is net new")
	assert.Equal(t, 1, ws.ClearRows, "the region shrank by one row")

	// strictly descending after the rewrite
	for i := 1; i < len(ws.Rows); i++ {
		assert.True(t, ws.Rows[i-1].Date.After(ws.Rows[i].Date),
			"rows must be strictly ordered, got %v then %v", ws.Rows[i-1].Date, ws.Rows[i].Date)
	}

	assert.Equal(t, day(7), ws.Rows[0].Date)
	assert.Equal(t, 1.7, ws.Rows[0].Cells[1])

	assert.Equal(t, day(5), ws.Rows[2].Date)
	assert.Equal(t, 5.5, ws.Rows[2].Cells[1], "fetched row wins the date collision")

	assert.Equal(t, day(4), ws.Rows[3].Date)
	assert.Equal(t, "1.4", ws.Rows[3].Cells[1], "untouched rows carry their cell text")
}

func TestBuildWriteSet_AscendingOrder(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.RowOrder = domain.OrderAscending
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 3, 1.3), obs("A", 1, 1.1), obs("A", 2, 1.2)},
	}

	ws, err := engine.BuildWriteSet(context.Background(), Request{
		Template: tpl,
		Snapshot: emptySnapshot(),
		Fetched:  fetched,
	})
	require.NoError(t, err)
	require.Len(t, ws.Rows, 3)
	assert.Equal(t, day(1), ws.Rows[0].Date)
	assert.Equal(t, day(3), ws.Rows[2].Date)
}

func TestBuildWriteSet_CustomDateFormat(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Merge = domain.MergeAppend
	tpl.DateFormat = "1/2/2006"
	tpl.Columns = map[string]int{"A": 1}
	tpl.MainSeries = []string{"A"}

	snap := domain.SheetSnapshot{
		Sheet: "Data",
		Rows: [][]string{
			{"Date", "A"},
			{"1/4/2021", "1.4"},
		},
	}
	fetched := map[string][]domain.Observation{"A": {obs("A", 4, 4.4), obs("A", 5, 5.5)}}

	ws, err := engine.BuildWriteSet(context.Background(), Request{Template: tpl, Snapshot: snap, Fetched: fetched})
	require.NoError(t, err)
	require.Len(t, ws.Rows, 2)
	assert.Equal(t, "1/5/2021", ws.Rows[0].Cells[0])
	assert.Equal(t, 4.4, ws.Rows[1].Cells[1], "existing row keyed through the custom layout is replaced")
	assert.Equal(t, 1, ws.NewRows)
}

func TestBuildWriteSet_UnknownMergeMode(t *testing.T) {
	engine := NewEngine(DefaultSettings())
	tpl := testTemplate()
	tpl.Merge = domain.MergeMode("upsert")
	fetched := map[string][]domain.Observation{
		"A": {obs("A", 1, 1.0)},
		"B": {obs("B", 1, 1.0)},
	}

	_, err := engine.BuildWriteSet(context.Background(), Request{
		Template: tpl,
		Snapshot: emptySnapshot(),
		Fetched:  fetched,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown merge mode")
}
