package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/stretchr/testify/mock"
)

// mockGateway is a mock implementation of task.Gateway.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]task.Record)
	return records, args.Error(1)
}

func (m *mockGateway) Create(ctx context.Context, r task.Record) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *mockGateway) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// pendingCall is a gateway request held until the test answers it.
type pendingCall struct {
	method string
	id     string
	record task.Record
	patch  task.RecordPatch
	reply  chan callResult
}

type callResult struct {
	id  string
	err error
}

func (c *pendingCall) respond(id string, err error) {
	c.reply <- callResult{id: id, err: err}
}

// scriptedGateway blocks every mutating call until the test responds, so
// completion order is under test control.
type scriptedGateway struct {
	records []task.Record
	calls   chan *pendingCall
}

func newScriptedGateway(records ...task.Record) *scriptedGateway {
	return &scriptedGateway{records: records, calls: make(chan *pendingCall, 16)}
}

func (g *scriptedGateway) FetchAll(context.Context) ([]task.Record, error) {
	return g.records, nil
}

func (g *scriptedGateway) Create(ctx context.Context, r task.Record) (string, error) {
	return g.do(ctx, &pendingCall{method: "create", record: r})
}

func (g *scriptedGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	_, err := g.do(ctx, &pendingCall{method: "patch", id: id, patch: p})
	return err
}

func (g *scriptedGateway) Delete(ctx context.Context, id string) error {
	_, err := g.do(ctx, &pendingCall{method: "delete", id: id})
	return err
}

func (g *scriptedGateway) do(ctx context.Context, c *pendingCall) (string, error) {
	c.reply = make(chan callResult, 1)
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *scriptedGateway) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a gateway call")
		return nil
	}
}

func (g *scriptedGateway) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected gateway call %s %s", c.method, c.id)
	case <-time.After(50 * time.Millisecond):
	}
}
