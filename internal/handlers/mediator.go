// Package handlers is the command/query layer over the core service. A
// Mediator routes each request to the handler registered for its concrete
// type and reports the result as an Outcome; errors never cross this
// boundary.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"taskcore/internal/core"
	"taskcore/pkg/domain"

	"github.com/go-playground/validator/v10"
)

// Outcome is the result of a command or query.
type Outcome struct {
	Succeeded bool
	// Reason explains a failure in words fit for an operator.
	Reason string
	Value  any
	// Err is the underlying failure, kept for errors.Is/As inspection.
	Err error
}

// Success wraps a handler's value.
func Success(value any) Outcome { return Outcome{Succeeded: true, Value: value} }

// Failure converts err into a failed outcome.
func Failure(err error) Outcome { return Outcome{Reason: Reason(err), Err: err} }

// Reason renders err according to its kind.
func Reason(err error) string {
	var blocked domain.RuleViolationError
	switch {
	case err == nil:
		return ""
	case domain.IsValidation(err):
		return "invalid input: " + err.Error()
	case domain.IsNotFound(err):
		return "not found: " + err.Error()
	case domain.IsConflict(err):
		return "conflict: the record changed since it was read; reload and retry"
	case errors.As(err, &blocked):
		return "rejected: " + blocked.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled: " + err.Error()
	default:
		return "storage failure: " + err.Error()
	}
}

// Request is a command or query. Validate checks request shape only; the
// domain enforces entity invariants.
type Request interface {
	Validate() error
}

// Command changes state.
type Command interface{ Request }

// Query reads state.
type Query interface{ Request }

// Handler executes one request type.
type Handler interface {
	Handle(ctx context.Context, req Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

// Middleware wraps every handler the mediator dispatches to.
type Middleware func(next Handler) Handler

// Mediator dispatches commands and queries by concrete type.
type Mediator struct {
	mu          sync.RWMutex
	commands    map[reflect.Type]Handler
	queries     map[reflect.Type]Handler
	middlewares []Middleware
}

// NewMediator returns an empty mediator. Middlewares run outermost first.
func NewMediator(middlewares ...Middleware) *Mediator {
	return &Mediator{
		commands:    make(map[reflect.Type]Handler),
		queries:     make(map[reflect.Type]Handler),
		middlewares: middlewares,
	}
}

// RegisterCommand binds h to the concrete type of cmd.
func (m *Mediator) RegisterCommand(cmd Command, h Handler) error {
	return m.register(m.commands, "command", cmd, h)
}

// RegisterQuery binds h to the concrete type of q.
func (m *Mediator) RegisterQuery(q Query, h Handler) error {
	return m.register(m.queries, "query", q, h)
}

func (m *Mediator) register(table map[reflect.Type]Handler, kind string, req Request, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := reflect.TypeOf(req)
	if _, exists := table[t]; exists {
		return fmt.Errorf("handler already registered for %s type %s", kind, t)
	}
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	table[t] = h
	return nil
}

// Send dispatches a command.
func (m *Mediator) Send(ctx context.Context, cmd Command) Outcome {
	return m.dispatch(ctx, m.commands, "command", cmd)
}

// Ask dispatches a query.
func (m *Mediator) Ask(ctx context.Context, q Query) Outcome {
	return m.dispatch(ctx, m.queries, "query", q)
}

func (m *Mediator) dispatch(ctx context.Context, table map[reflect.Type]Handler, kind string, req Request) Outcome {
	if err := req.Validate(); err != nil {
		return Failure(err)
	}
	m.mu.RLock()
	h, ok := table[reflect.TypeOf(req)]
	m.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("no handler registered for %s type %T", kind, req)
		return Outcome{Reason: err.Error(), Err: err}
	}
	value, err := h.Handle(ctx, req)
	if err != nil {
		return Failure(err)
	}
	return Success(value)
}

// SendAs dispatches cmd and type-asserts a successful value to T.
func SendAs[T any](ctx context.Context, m *Mediator, cmd Command) (T, Outcome) {
	return valueAs[T](m.Send(ctx, cmd))
}

// AskAs dispatches q and type-asserts a successful value to T.
func AskAs[T any](ctx context.Context, m *Mediator, q Query) (T, Outcome) {
	return valueAs[T](m.Ask(ctx, q))
}

func valueAs[T any](out Outcome) (T, Outcome) {
	var zero T
	if !out.Succeeded {
		return zero, out
	}
	if out.Value == nil {
		return zero, out
	}
	value, ok := out.Value.(T)
	if !ok {
		err := fmt.Errorf("unexpected result type %T", out.Value)
		return zero, Outcome{Reason: err.Error(), Err: err}
	}
	return value, out
}

// Logging records each request's type, duration and failure reason.
func Logging(logger core.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
			started := time.Now()
			value, err := next.Handle(ctx, req)
			name := reflect.TypeOf(req).Name()
			if err != nil {
				logger.Warn("request failed", "request", name, "reason", Reason(err), "error", err)
			} else {
				logger.Debug("request handled", "request", name, "duration", time.Since(started))
			}
			return value, err
		})
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkShape runs struct tag validation and reports failures as domain
// validation errors.
func checkShape(entity domain.EntityType, req any) error {
	err := validate.Struct(req)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fe := fieldErrs[0]
	return &domain.ValidationError{Entity: entity, Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	default:
		return "is invalid"
	}
}
