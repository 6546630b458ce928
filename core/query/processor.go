package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/rowql/core/row"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoEventBus is returned by Subscribe on an evaluator built without an
// event bus.
var ErrNoEventBus = errors.New("evaluator has no event bus")

// Evaluator materializes query plans.
type Evaluator struct {
	logger        *zap.Logger
	maxRows       int
	bus           *events.TypedEventBus[EvaluationEvent]
	ownsBus       bool
	subscriptions map[string]func()
	mu            sync.RWMutex
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventBus publishes evaluation events on bus instead of a bus owned by
// the evaluator.
func WithEventBus(bus *events.TypedEventBus[EvaluationEvent]) Option {
	return func(e *Evaluator) {
		e.bus = bus
	}
}

// WithMaxRows fails any evaluation in which a single stage produces more
// than n rows. Zero or less means no limit.
func WithMaxRows(n int) Option {
	return func(e *Evaluator) {
		e.maxRows = n
	}
}

// defaultEvaluator backs Stage.Eval. It logs nothing and publishes nothing.
var defaultEvaluator = &Evaluator{logger: zap.NewNop()}

// NewEvaluator creates an Evaluator. Unless WithEventBus is given it creates
// its own event bus, which Close shuts down.
func NewEvaluator(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		logger:        zap.NewNop(),
		subscriptions: make(map[string]func()),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		config := events.DefaultConfig()
		// DefaultConfig logs to stdout.
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		bus, err := events.NewTypedEventBus[EvaluationEvent](config)
		if err != nil {
			return nil, fmt.Errorf("failed to create event bus: %w", err)
		}
		e.bus = bus
		e.ownsBus = true
	}
	return e, nil
}

// Close removes every subscription and shuts down the event bus the
// evaluator created. A bus given with WithEventBus is left open. Evaluate
// keeps working after Close but publishes nothing.
func (e *Evaluator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, unsubscribe := range e.subscriptions {
		unsubscribe()
		delete(e.subscriptions, id)
	}
	if !e.ownsBus || e.bus == nil {
		return nil
	}
	bus := e.bus
	e.bus = nil
	e.ownsBus = false
	if err := bus.Close(); err != nil {
		return fmt.Errorf("failed to close event bus: %w", err)
	}
	return nil
}

// Subscribe registers cb for events of the given type and returns an ID for
// Unsubscribe.
func (e *Evaluator) Subscribe(eventType EvaluationEventType, cb EventCallback) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bus == nil {
		return "", ErrNoEventBus
	}

	unsubscribe := e.bus.Subscribe(string(eventType), func(ctx context.Context, event EvaluationEvent) error {
		return cb(ctx, event)
	})
	id := uuid.New().String()
	e.subscriptions[id] = unsubscribe
	e.logger.Info("Registered evaluation subscription", zap.String("event", string(eventType)), zap.String("id", id))
	return id, nil
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (e *Evaluator) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if unsubscribe, ok := e.subscriptions[id]; ok {
		unsubscribe()
		delete(e.subscriptions, id)
	}
}

// Evaluate validates the plan of p and materializes it. It returns either
// every output row or an error, never a partial result.
func (e *Evaluator) Evaluate(ctx context.Context, p Planner) ([]row.Row, error) {
	plan := p.Plan()
	runID := uuid.New().String()
	startTime := time.Now()
	bus := e.eventBus()
	explained := ""
	if bus != nil {
		explained = explainPlan(plan)
	}
	emit := func(event EvaluationEvent) {
		if bus != nil {
			bus.EmitWithContext(ctx, string(event.Type), event)
		}
	}
	emit(createEvent(EvaluateStart, runID, explained, 0, nil, startTime))

	rows, err := e.evaluate(ctx, plan)
	if err != nil {
		e.logger.Error("Evaluation failed", zap.String("run", runID), zap.Error(err))
		emit(createEvent(EvaluateFailed, runID, explained, 0, err, startTime))
		return nil, err
	}

	e.logger.Debug("Evaluation finished", zap.String("run", runID), zap.Int("count", len(rows)))
	emit(createEvent(EvaluateSuccess, runID, explained, len(rows), nil, startTime))
	return rows, nil
}

func (e *Evaluator) evaluate(ctx context.Context, plan *Node) ([]row.Row, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	return e.evalNode(ctx, plan)
}

func (e *Evaluator) evalNode(ctx context.Context, n *Node) ([]row.Row, error) {
	if n.Kind == NodeSource {
		return n.Rows, e.checkRows(n, len(n.Rows))
	}
	if n.Input == nil {
		return nil, fmt.Errorf("%s node has no input", n.Kind)
	}

	input, err := e.evalNode(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []row.Row
	switch n.Kind {
	case NodeFilter:
		out = make([]row.Row, 0, len(input))
		for _, r := range input {
			if n.Predicate(r) {
				out = append(out, r)
			}
		}
	case NodeOrderBy:
		out = sortRows(input, n.Keys)
	case NodeJoin:
		if n.Join == JoinTypeCross {
			if err := e.checkRows(n, len(input)*len(n.Rows)); err != nil {
				return nil, err
			}
		}
		out = joinRows(n.Join, input, n.Rows, n.Condition)
	case NodePaginate:
		out = paginate(input, n.Page)
	case NodeProject:
		out = make([]row.Row, len(input))
		for i, r := range input {
			out[i] = project(n.Projection, r)
		}
	default:
		return nil, fmt.Errorf("unknown node kind %s", n.Kind)
	}

	if err := e.checkRows(n, len(out)); err != nil {
		return nil, err
	}
	e.logger.Debug("Stage evaluated", zap.String("stage", n.Kind.String()), zap.Int("count", len(out)))
	return out, nil
}

func (e *Evaluator) checkRows(n *Node, count int) error {
	if e.maxRows > 0 && count > e.maxRows {
		return fmt.Errorf("%w: %s stage produced %d rows, limit is %d", ErrRowLimitExceeded, n.Kind, count, e.maxRows)
	}
	return nil
}

func (e *Evaluator) eventBus() *events.TypedEventBus[EvaluationEvent] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bus
}

func paginate(rows []row.Row, page Page) []row.Row {
	n := min(page.N, len(rows))
	if page.Kind == PageOffset {
		return rows[n:]
	}
	return rows[:n:n]
}
