package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/rowql/core/row"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func joinFixture() (lhs, rhs []row.Row) {
	lhs = []row.Row{
		row.Of("id", "a"),
		row.Of("id", "b"),
		row.Of("id", "c"),
	}
	rhs = []row.Row{
		row.Of("id", "a", "value", 1),
		row.Of("id", "a", "value", 2),
		row.Of("id", "b", "value", 3),
		row.Of("id", "d", "value", 4),
	}
	return lhs, rhs
}

func sameID(l, r row.Row) bool {
	return l.Value("id") == r.Value("id")
}

func sizeOf(r row.Row) int {
	return r.Value("size").(int)
}

func TestEval_Scenarios(t *testing.T) {
	lhs, rhs := joinFixture()

	tests := []struct {
		name     string
		stage    func() Planner
		expected []row.Row
	}{
		{
			name: "select from",
			stage: func() Planner {
				return Select("*").From([]row.Row{row.Of("value", "a"), row.Of("value", "b")})
			},
			expected: []row.Row{row.Of("value", "a"), row.Of("value", "b")},
		},
		{
			name: "select from where",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("size", 1), row.Of("size", 2)}).
					Where(func(r row.Row) bool { return sizeOf(r) > 1 })
			},
			expected: []row.Row{row.Of("size", 2)},
		},
		{
			name: "order by comparator",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("size", 2), row.Of("size", 1)}).
					OrderBy(func(a, b row.Row) int { return sizeOf(a) - sizeOf(b) })
			},
			expected: []row.Row{row.Of("size", 1), row.Of("size", 2)},
		},
		{
			name: "order by extractor",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("size", 2), row.Of("size", 1)}).
					OrderBy(func(r row.Row) any { return r.Value("size") })
			},
			expected: []row.Row{row.Of("size", 1), row.Of("size", 2)},
		},
		{
			name: "order by path",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("size", 2), row.Of("size", 1)}).
					OrderBy("size")
			},
			expected: []row.Row{row.Of("size", 1), row.Of("size", 2)},
		},
		{
			name: "order by multiple keys",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{
						row.Of("size", 2, "other", 1),
						row.Of("size", 1, "other", 2),
						row.Of("size", 1, "other", 1),
					}).
					OrderBy("size").
					OrderBy("other")
			},
			expected: []row.Row{
				row.Of("size", 1, "other", 1),
				row.Of("size", 1, "other", 2),
				row.Of("size", 2, "other", 1),
			},
		},
		{
			name: "order by descending",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("size", 1), row.Of("size", 2)}).
					OrderBy("size", Descending)
			},
			expected: []row.Row{row.Of("size", 2), row.Of("size", 1)},
		},
		{
			name: "inner join",
			stage: func() Planner {
				return Select("*").From(lhs).Join(rhs).On(sameID)
			},
			expected: []row.Row{
				row.Of("id", "a", "value", 1),
				row.Of("id", "a", "value", 2),
				row.Of("id", "b", "value", 3),
			},
		},
		{
			name: "left join",
			stage: func() Planner {
				return Select("*").From(lhs).LeftJoin(rhs).On(sameID)
			},
			expected: []row.Row{
				row.Of("id", "a", "value", 1),
				row.Of("id", "a", "value", 2),
				row.Of("id", "b", "value", 3),
				row.Of("id", "c"),
			},
		},
		{
			name: "right join",
			stage: func() Planner {
				return Select("*").From(lhs).RightJoin(rhs).On(sameID)
			},
			expected: []row.Row{
				row.Of("id", "a", "value", 1),
				row.Of("id", "a", "value", 2),
				row.Of("id", "b", "value", 3),
				row.Of("id", "d", "value", 4),
			},
		},
		{
			name: "outer join",
			stage: func() Planner {
				return Select("*").From(lhs).OuterJoin(rhs).On(sameID)
			},
			expected: []row.Row{
				row.Of("id", "a", "value", 1),
				row.Of("id", "a", "value", 2),
				row.Of("id", "b", "value", 3),
				row.Of("id", "c"),
				row.Of("id", "d", "value", 4),
			},
		},
		{
			name: "cross join",
			stage: func() Planner {
				return Select("*").
					From([]row.Row{row.Of("lhs", "a"), row.Of("lhs", "b")}).
					CrossJoin([]row.Row{row.Of("rhs", "c"), row.Of("rhs", "d")})
			},
			expected: []row.Row{
				row.Of("lhs", "a", "rhs", "c"),
				row.Of("lhs", "a", "rhs", "d"),
				row.Of("lhs", "b", "rhs", "c"),
				row.Of("lhs", "b", "rhs", "d"),
			},
		},
		{
			name: "left join by id on three rows",
			stage: func() Planner {
				return Select("*").
					From(lhs).
					LeftJoin([]row.Row{row.Of("id", "a", "x", 1), row.Of("id", "b", "x", 2)}).
					On(sameID)
			},
			expected: []row.Row{
				row.Of("id", "a", "x", 1),
				row.Of("id", "b", "x", 2),
				row.Of("id", "c"),
			},
		},
		{
			name: "projection filter and ordering",
			stage: func() Planner {
				values := []row.Row{
					row.Of("value", "a", "size", 3),
					row.Of("value", "b", "size", 2),
					row.Of("value", "d", "size", 4),
					row.Of("value", "c", "size", 4),
				}
				return Select("value", "size").
					From(values).
					Where(func(r row.Row) bool { return sizeOf(r) > 2 }).
					OrderBy(func(a, b row.Row) int { return sizeOf(a) - sizeOf(b) }).
					OrderBy("value")
			},
			expected: []row.Row{
				row.Of("value", "a", "size", 3),
				row.Of("value", "c", "size", 4),
				row.Of("value", "d", "size", 4),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := defaultEvaluator.Evaluate(context.Background(), tt.stage())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rows)
		})
	}
}

func TestEval_EmptySourceYieldsEmptyResult(t *testing.T) {
	rows, err := Select("*").From(nil).Eval()
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	lhs, _ := joinFixture()
	rows, err = Select("*").From(lhs).Join(nil).On(sameID).Eval()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEval_WhereProperty(t *testing.T) {
	var source []row.Row
	for i := range 50 {
		source = append(source, row.Of("n", i))
	}
	even := func(r row.Row) bool { return r.Value("n").(int)%2 == 0 }

	rows, err := Select("*").From(source).Where(even).Eval()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), len(source))
	assert.Len(t, rows, 25)
	for _, r := range rows {
		assert.True(t, even(r))
	}
}

func TestEval_OrderingIsStable(t *testing.T) {
	source := []row.Row{
		row.Of("key", 2, "seq", 0),
		row.Of("key", 1, "seq", 1),
		row.Of("key", 2, "seq", 2),
		row.Of("key", 1, "seq", 3),
		row.Of("key", 2, "seq", 4),
		row.Of("key", 1, "seq", 5),
	}

	rows, err := Select("seq").From(source).OrderBy("key").Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("seq", 1), row.Of("seq", 3), row.Of("seq", 5),
		row.Of("seq", 0), row.Of("seq", 2), row.Of("seq", 4),
	}, rows)

	rows, err = Select("seq").From(source).OrderBy("key", Descending).Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("seq", 0), row.Of("seq", 2), row.Of("seq", 4),
		row.Of("seq", 1), row.Of("seq", 3), row.Of("seq", 5),
	}, rows)
}

func TestEval_MultiKeyEqualsGroupedSort(t *testing.T) {
	source := []row.Row{
		row.Of("g", "b", "v", 3),
		row.Of("g", "a", "v", 2),
		row.Of("g", "b", "v", 1),
		row.Of("g", "a", "v", 9),
		row.Of("g", "a", "v", 1),
	}

	multi, err := Select("*").From(source).OrderBy("g").OrderBy("v", Descending).Eval()
	require.NoError(t, err)

	var grouped []row.Row
	for _, g := range []string{"a", "b"} {
		part, err := Select("*").
			From(source).
			Where(Field("g").Eq(g)).
			OrderBy("v", Descending).
			Eval()
		require.NoError(t, err)
		grouped = append(grouped, part...)
	}
	assert.Equal(t, grouped, multi)
}

func TestEval_OrderByLargeIntegerIDs(t *testing.T) {
	source := []row.Row{
		row.Of("id", int64(9007199254740993)),
		row.Of("id", int64(9007199254740992)),
		row.Of("id", int64(9007199254740994)),
	}

	rows, err := Select("id").From(source).OrderBy("id").Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("id", int64(9007199254740992)),
		row.Of("id", int64(9007199254740993)),
		row.Of("id", int64(9007199254740994)),
	}, rows)

	rows, err = Select("id").From(source).Where(Field("id").Eq(int64(9007199254740993))).Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{row.Of("id", int64(9007199254740993))}, rows)
}

func TestEval_Pagination(t *testing.T) {
	var source []row.Row
	for i := range 10 {
		source = append(source, row.Of("n", i))
	}
	base := Select("n").From(source)
	all, err := base.Eval()
	require.NoError(t, err)

	tests := []struct {
		name     string
		stage    *Stage
		expected []row.Row
	}{
		{"limit", base.Limit(3), all[:3]},
		{"offset", base.Offset(7), all[7:]},
		{"limit then offset", base.Limit(5).Offset(2), all[:5][2:]},
		{"offset then limit", base.Offset(2).Limit(5), all[2:][:5]},
		{"offset past end", base.Offset(20), []row.Row{}},
		{"limit past end", base.Limit(20), all},
		{"limit zero", base.Limit(0), []row.Row{}},
		{"offset zero", base.Offset(0), all},
		{"chained offsets", base.Offset(2).Offset(3), all[5:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := tt.stage.Eval()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rows)
		})
	}
}

func TestEval_PaginationAfterOrdering(t *testing.T) {
	source := []row.Row{row.Of("n", 3), row.Of("n", 1), row.Of("n", 2), row.Of("n", 4)}
	rows, err := Select("n").From(source).OrderBy("n", Descending).Offset(1).Limit(2).Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{row.Of("n", 3), row.Of("n", 2)}, rows)
}

func TestEval_CrossJoinCardinality(t *testing.T) {
	for _, sizes := range [][2]int{{0, 3}, {3, 0}, {1, 1}, {4, 5}} {
		var left, right []row.Row
		for i := range sizes[0] {
			left = append(left, row.Of("l", i))
		}
		for i := range sizes[1] {
			right = append(right, row.Of("r", i))
		}
		rows, err := Select("*").From(left).CrossJoin(right).Eval()
		require.NoError(t, err)
		assert.Len(t, rows, sizes[0]*sizes[1])
	}
}

func TestEval_ChainedJoinsComposeLeftToRight(t *testing.T) {
	users := []row.Row{row.Of("user", "ada"), row.Of("user", "bob")}
	orders := []row.Row{
		row.Of("user", "ada", "order", 1),
		row.Of("user", "ada", "order", 2),
		row.Of("user", "bob", "order", 3),
	}
	items := []row.Row{
		row.Of("order", 1, "item", "pen"),
		row.Of("order", 3, "item", "ink"),
	}

	rows, err := Select("user", "order", "item").
		From(users).
		Join(orders).On(FieldsEqual("user", "user")).
		LeftJoin(items).On(FieldsEqual("order", "order")).
		Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("user", "ada", "order", 1, "item", "pen"),
		row.Of("user", "ada", "order", 2, "item", nil),
		row.Of("user", "bob", "order", 3, "item", "ink"),
	}, rows)
}

func TestEval_JoinAfterFilterAndOrder(t *testing.T) {
	lhs, rhs := joinFixture()
	rows, err := Select("id", "value").
		From(lhs).
		Where(Field("id").Neq("b")).
		OrderBy("id", Descending).
		LeftJoin(rhs).On(sameID).
		Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("id", "c", "value", nil),
		row.Of("id", "a", "value", 1),
		row.Of("id", "a", "value", 2),
	}, rows)
}

func TestEval_WildcardSeesMergedRow(t *testing.T) {
	left := []row.Row{row.Of("id", 1, "name", "left", "only", "l")}
	right := []row.Row{row.Of("name", "right", "id", 1, "extra", true)}

	rows, err := Select("*", "name").
		From(left).
		Join(right).On(FieldsEqual("id", "id")).
		Eval()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{
		row.Of("id", 1, "name", "right", "only", "l", "extra", true),
	}, rows)
}

func TestEval_DoesNotMutateSources(t *testing.T) {
	source := []row.Row{row.Of("n", 3), row.Of("n", 1), row.Of("n", 2)}
	right := []row.Row{row.Of("m", 1)}
	snapshot := append([]row.Row(nil), source...)
	rightSnapshot := append([]row.Row(nil), right...)

	stage := Select("*").From(source).OrderBy("n").CrossJoin(right).Limit(2)
	first, err := stage.Eval()
	require.NoError(t, err)
	second, err := stage.Eval()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, source)
	assert.Equal(t, rightSnapshot, right)
}

func TestEval_LimitResultCannotClobberSource(t *testing.T) {
	source := []row.Row{row.Of("n", 1), row.Of("n", 2), row.Of("n", 3)}
	stage := Select("*").From(source).Limit(1)
	rows, err := stage.Eval()
	require.NoError(t, err)
	rows = append(rows, row.Of("n", 99))
	assert.Len(t, rows, 2)
	assert.Equal(t, row.Of("n", 2), source[1])
}

func TestEvaluator_Errors(t *testing.T) {
	source := []row.Row{row.Of("n", 1)}

	tests := []struct {
		name     string
		stage    Planner
		expected error
	}{
		{"projection shape", Select(42).From(source), ErrInvalidProjectionExpression},
		{"where shape", Select("*").From(source).Where("n > 1"), ErrUnsupportedConditionType},
		{"on shape", Select("*").From(source).Join(source).On(true), ErrUnsupportedConditionType},
		{"direction", Select("*").From(source).OrderBy("n", Direction("desc")), ErrInvalidSortDirection},
		{"order key shape", Select("*").From(source).OrderBy(3.5), ErrInvalidOrderKeySpecification},
		{"negative limit", Select("*").From(source).Limit(-1), ErrInvalidPaginationArgument},
		{"negative offset", Select("*").From(source).Offset(-2), ErrInvalidPaginationArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := defaultEvaluator.Evaluate(context.Background(), tt.stage)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, rows)

			var stageErr *StageError
			assert.True(t, errors.As(err, &stageErr))
		})
	}
}

func TestEvaluator_ErrorsAreNotPartial(t *testing.T) {
	calls := 0
	counting := func(r row.Row) bool {
		calls++
		return true
	}
	rows, err := Select("*").From([]row.Row{row.Of("n", 1)}).Where(counting).Limit(-1).Eval()
	assert.ErrorIs(t, err, ErrInvalidPaginationArgument)
	assert.Nil(t, rows)
	assert.Zero(t, calls)
}

func TestEvaluator_MaxRows(t *testing.T) {
	e, err := NewEvaluator(WithMaxRows(5))
	require.NoError(t, err)

	var left, right []row.Row
	for i := range 3 {
		left = append(left, row.Of("l", i))
		right = append(right, row.Of("r", i))
	}

	_, err = e.Evaluate(context.Background(), Select("*").From(left).CrossJoin(right))
	assert.ErrorIs(t, err, ErrRowLimitExceeded)

	rows, err := e.Evaluate(context.Background(), Select("*").From(left).CrossJoin(right[:1]))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestEvaluator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, err := Select("*").From([]row.Row{row.Of("n", 1)}).Where(Field("n").Exists()).EvalContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rows)
}

func TestEvaluator_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEvaluator(WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), Select("*").From([]row.Row{row.Of("n", 1)}).Limit(1))
	require.NoError(t, err)
	stages := logs.FilterMessage("Stage evaluated").All()
	require.Len(t, stages, 2)
	assert.Equal(t, "paginate", stages[0].ContextMap()["stage"])
	assert.Equal(t, "select", stages[1].ContextMap()["stage"])
	assert.Equal(t, 1, logs.FilterMessage("Evaluation finished").Len())

	_, err = e.Evaluate(context.Background(), Select("*").From(nil).Limit(-1))
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Evaluation failed").Len())
}

type eventRecorder struct {
	mu     sync.Mutex
	events []EvaluationEvent
}

func (r *eventRecorder) record(_ context.Context, ev EvaluationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) snapshot() []EvaluationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EvaluationEvent(nil), r.events...)
}

func TestEvaluator_Events(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	rec := &eventRecorder{}
	for _, typ := range []EvaluationEventType{EvaluateStart, EvaluateSuccess, EvaluateFailed} {
		id, err := e.Subscribe(typ, rec.record)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	_, err = e.Evaluate(context.Background(), Select("*").From([]row.Row{row.Of("n", 1), row.Of("n", 2)}))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	got := rec.snapshot()
	types := map[EvaluationEventType]EvaluationEvent{}
	for _, ev := range got {
		types[ev.Type] = ev
	}
	require.Contains(t, types, EvaluateStart)
	require.Contains(t, types, EvaluateSuccess)
	assert.Equal(t, types[EvaluateStart].RunID, types[EvaluateSuccess].RunID)
	assert.Equal(t, 2, types[EvaluateSuccess].Rows)
	assert.NotNil(t, types[EvaluateSuccess].Duration)
	assert.Nil(t, types[EvaluateStart].Duration)
	assert.Equal(t, "SOURCE rows=2 | SELECT *", types[EvaluateSuccess].Plan)

	_, err = e.Evaluate(context.Background(), Select(1).From(nil))
	require.Error(t, err)
	assert.Eventually(t, func() bool {
		for _, ev := range rec.snapshot() {
			if ev.Type == EvaluateFailed && ev.Error != nil {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestEvaluator_Unsubscribe(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	rec := &eventRecorder{}
	id, err := e.Subscribe(EvaluateSuccess, rec.record)
	require.NoError(t, err)
	e.Unsubscribe(id)
	e.Unsubscribe("unknown")

	_, err = e.Evaluate(context.Background(), Select("*").From(nil))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestEvaluator_DefaultHasNoBus(t *testing.T) {
	_, err := defaultEvaluator.Subscribe(EvaluateStart, func(context.Context, EvaluationEvent) error { return nil })
	assert.ErrorIs(t, err, ErrNoEventBus)
}

type runKey struct{}

func TestEvaluator_EventsCarryCallerContext(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)
	defer e.Close()

	var mu sync.Mutex
	var seen []any
	_, err = e.Subscribe(EvaluateSuccess, func(ctx context.Context, ev EvaluationEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ctx.Value(runKey{}))
		return nil
	})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), runKey{}, "nightly")
	_, err = e.Evaluate(ctx, Select("*").From([]row.Row{row.Of("n", 1)}))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "nightly", seen[0])
}

func TestEvaluator_Close(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	rec := &eventRecorder{}
	_, err = e.Subscribe(EvaluateSuccess, rec.record)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Subscribe(EvaluateSuccess, rec.record)
	assert.ErrorIs(t, err, ErrNoEventBus)

	rows, err := e.Evaluate(context.Background(), Select("*").From([]row.Row{row.Of("n", 1)}))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Empty(t, rec.snapshot())
}

func TestEvaluator_CloseLeavesCallerBusOpen(t *testing.T) {
	bus, err := events.NewTypedEventBus[EvaluationEvent](events.DefaultConfig())
	require.NoError(t, err)

	e, err := NewEvaluator(WithEventBus(bus))
	require.NoError(t, err)
	require.NoError(t, e.Close())

	// The bus reports an error when it was already closed.
	assert.NoError(t, bus.Close())
}
