package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProcess = errors.New("process failed")

func TestExecuteNewestFirstThenRemove(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()
	trace := &callTrace{}

	require.NoError(t, o.Add(ctx, &testModule{name: "A", trace: trace}))
	require.NoError(t, o.Add(ctx, &testModule{name: "B", trace: trace}))

	require.NoError(t, o.Execute(ctx, NewRecord("x")))
	assert.Equal(t, []string{"B", "A"}, trace.get())

	require.NoError(t, o.Remove(ctx, "A"))
	trace.reset()

	require.NoError(t, o.Execute(ctx, NewRecord("y")))
	assert.Equal(t, []string{"B"}, trace.get())
}

func TestExecuteErrorPolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     ErrorPolicy
		wantErr    bool
		wantTail   int
		wantErrors int
	}{
		{"continue runs every module", PolicyContinue, true, 1, 2},
		{"abort stops at first failure", PolicyAbort, true, 0, 1},
		{"ignore reports success", PolicyIgnore, false, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, func(c *Config) { c.ErrorPolicy = tt.policy })
			ctx := context.Background()

			tail := &testModule{name: "tail"}
			require.NoError(t, o.Add(ctx, tail))
			require.NoError(t, o.Add(ctx, &testModule{name: "second", processErr: errProcess}))
			require.NoError(t, o.Add(ctx, &testModule{name: "first", processErr: errProcess}))

			err := o.Execute(ctx, NewRecord("x"))
			_, processed, _ := tail.counts()
			assert.Equal(t, tt.wantTail, processed)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errProcess)

			var modErr *ModuleError
			require.ErrorAs(t, err, &modErr)
			assert.Equal(t, "first", modErr.Module)
			assert.Equal(t, OpProcess, modErr.Op)
			assert.Len(t, multierrErrors(err), tt.wantErrors)
		})
	}
}

func TestExecuteWritesOwnedSlots(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	require.NoError(t, o.Add(ctx, &testModule{name: "lang", slot: SlotLanguage, value: "Czech"}))
	require.NoError(t, o.Add(ctx, &testModule{name: "mood", slot: SlotSentiment, value: "Positive"}))

	rec := NewRecord("dobrý den")
	require.NoError(t, o.Execute(ctx, rec))

	view := rec.Snapshot()
	assert.Equal(t, "Czech", view.Language)
	assert.Equal(t, "Positive", view.Sentiment)
	assert.Empty(t, view.Topic)
	assert.Empty(t, view.Response)

	// Outside a walk no slot is writable.
	assert.ErrorIs(t, rec.Set(SlotLanguage, "English"), ErrSlotNotOwned)
}

func TestExecuteRejectsForeignSlot(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	sneaky := Func("sneaky", SlotTopic, func(_ context.Context, rec *Record) error {
		return rec.Set(SlotResponse, "hijacked")
	})
	require.NoError(t, o.Add(ctx, sneaky))

	rec := NewRecord("x")
	err := o.Execute(ctx, rec)
	assert.ErrorIs(t, err, ErrSlotNotOwned)
	assert.Empty(t, rec.Output(SlotResponse))
}

func TestExecuteRecoversPanic(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	after := &testModule{name: "after"}
	require.NoError(t, o.Add(ctx, after))
	require.NoError(t, o.Add(ctx, &testModule{name: "boom", panicMsg: "kaboom"}))

	err := o.Execute(ctx, NewRecord("x"))
	assert.ErrorIs(t, err, ErrModulePanic)
	assert.Contains(t, err.Error(), "kaboom")

	_, processed, _ := after.counts()
	assert.Equal(t, 1, processed)
}

func TestExecuteCancelledContext(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) { c.ErrorPolicy = PolicyIgnore })
	m := &testModule{name: "m"}
	require.NoError(t, o.Add(context.Background(), m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Execute(ctx, NewRecord("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, processed, _ := m.counts()
	assert.Zero(t, processed)
}

func TestExecuteNilRecord(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	assert.ErrorIs(t, o.Execute(context.Background(), nil), ErrRecordNil)
}

func TestExecuteBreakerSkipsFailingModule(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) {
		c.Breaker = &resilience.Settings{
			Timeout:     time.Hour,
			ReadyToTrip: resilience.ConsecutiveFailures(2),
		}
	})
	ctx := context.Background()

	flaky := &testModule{name: "flaky", processErr: errProcess}
	require.NoError(t, o.Add(ctx, flaky))

	assert.ErrorIs(t, o.Execute(ctx, NewRecord("1")), errProcess)
	assert.ErrorIs(t, o.Execute(ctx, NewRecord("2")), errProcess)

	err := o.Execute(ctx, NewRecord("3"))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	_, processed, _ := flaky.counts()
	assert.Equal(t, 2, processed)

	// A removed module's breaker goes with it.
	require.NoError(t, o.Remove(ctx, "flaky"))
	flaky.processErr = nil
	require.NoError(t, o.Add(ctx, flaky))
	assert.NoError(t, o.Execute(ctx, NewRecord("4")))
}

func TestParseErrorPolicy(t *testing.T) {
	for _, s := range []string{"continue", "abort", "ignore"} {
		p, err := ParseErrorPolicy(s)
		require.NoError(t, err)
		assert.Equal(t, ErrorPolicy(s), p)
	}

	_, err := ParseErrorPolicy("retry")
	assert.Error(t, err)
}
