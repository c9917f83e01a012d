package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/notify"
	"github.com/roach88/stepwise/internal/step"
)

func TestEngine_New_Defaults(t *testing.T) {
	e := New(nil, WithTokens(NewFixedGenerator("run-1")), WithLogger(DiscardLogger()))

	assert.Equal(t, "run-1", e.RunToken())
	assert.False(t, e.Finished())
	assert.False(t, e.HasFailed())
	assert.Equal(t, int64(0), e.Clock().Current())

	tally := e.Tally()
	assert.Equal(t, 0, tally.Executed)
	assert.Equal(t, 0, tally.Ignored)
}

func TestEngine_New_TokenDrawnOnce(t *testing.T) {
	gen := NewFixedGenerator("only-token")
	e := newTestEngineWithGen(t, gen)

	assert.Equal(t, "only-token", e.RunToken())
	assert.Equal(t, "only-token", e.RunToken(), "token is stable for the engine's lifetime")
}

func newTestEngineWithGen(t *testing.T, gen TokenGenerator) *Engine {
	t.Helper()
	return New(nil, WithLogger(DiscardLogger()), WithTokens(gen))
}

func TestEngine_Finish_DeliversTally(t *testing.T) {
	listener := &recordingListener{}
	e := newTestEngine(t, []notify.Listener{listener})

	lib := step.NewLibrary("Suite")
	def := lib.Step("A", okBody(nil))
	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)

	require.NoError(t, e.Finish())
	assert.Equal(t, "test_finished:1/0/0", listener.events[len(listener.events)-1])
	assert.True(t, e.Finished())
}

func TestEngine_Finish_ReturnsNilWithoutFailOnFinish(t *testing.T) {
	e := newTestEngine(t, nil)

	lib := step.NewLibrary("Suite")
	def := lib.Step("broken", failBody(step.NewAssertionError("nope")))
	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)

	assert.NoError(t, e.Finish(), "without WithFailOnFinish the tally carries the failure")
}

func TestEngine_Finish_FailOnFinishReturnsCause(t *testing.T) {
	e := newTestEngine(t, nil, WithFailOnFinish(true))

	lib := step.NewLibrary("Suite")
	cause := step.NewAssertionError("wrong total")
	def := lib.Step("checkout", failBody(cause))

	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)

	err = e.Finish()
	require.Error(t, err)
	assert.Same(t, cause, err, "Finish surfaces the recorded failure's cause")
}

func TestEngine_Finish_FailOnFinishPlainFailureCounts(t *testing.T) {
	// Plain-call failures never reach the tally, but they are recorded,
	// and WithFailOnFinish reports from the record.
	e := newTestEngine(t, nil, WithFailOnFinish(true))

	lib := step.NewLibrary("Suite")
	cause := step.NewAssertionError("fixture missing")
	helper := lib.Plain("load_fixture", failBody(cause))

	_, err := e.Call(context.Background(), helper)
	require.NoError(t, err)
	assert.Empty(t, e.Tally().Failures)

	err = e.Finish()
	assert.Same(t, cause, err)
}

func TestEngine_Finish_SecondFinishFails(t *testing.T) {
	e := newTestEngine(t, nil)

	require.NoError(t, e.Finish())
	err := e.Finish()
	require.Error(t, err)
	assert.True(t, IsRunFinished(err))
}

func TestEngine_Call_AfterFinishFails(t *testing.T) {
	listener := &recordingListener{}
	e := newTestEngine(t, []notify.Listener{listener})
	require.NoError(t, e.Finish())

	lib := step.NewLibrary("Suite")
	def := lib.Step("late", okBody(nil))

	_, err := e.Call(context.Background(), def)
	require.Error(t, err)
	assert.True(t, IsRunFinished(err))
	assert.Equal(t, []string{"test_finished:0/0/0"}, listener.events,
		"no notifications after the terminal event")
}

func TestEngine_Finish_DeliversTallyCopy(t *testing.T) {
	var seen step.Tally
	listener := &tallyCaptureListener{capture: &seen}
	e := newTestEngine(t, []notify.Listener{listener})

	lib := step.NewLibrary("Suite")
	def := lib.Step("A", okBody(nil))
	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)
	require.NoError(t, e.Finish())

	seen.Executed = 99
	assert.Equal(t, 1, e.Tally().Executed, "listener mutation cannot reach the engine's tally")
}

type tallyCaptureListener struct {
	notify.BaseListener
	capture *step.Tally
}

func (l *tallyCaptureListener) TestFinished(t step.Tally) {
	*l.capture = t
}

func TestEngine_Failures_ReturnsCopy(t *testing.T) {
	e := newTestEngine(t, nil)

	lib := step.NewLibrary("Suite")
	def := lib.Step("broken", failBody(step.NewAssertionError("nope")))
	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)

	failures := e.Failures()
	require.Len(t, failures, 1)
	failures[0] = step.Failure{}

	again := e.Failures()
	assert.Equal(t, "broken", again[0].Description.Name)
}

func TestEngine_LastFailure_Empty(t *testing.T) {
	e := newTestEngine(t, nil)

	_, ok := e.LastFailure()
	assert.False(t, ok)
}

func TestEngine_Options_NilValuesKeepDefaults(t *testing.T) {
	e := New(nil,
		WithLogger(nil),
		WithClock(nil),
		WithTokens(NewFixedGenerator("run-1")),
	)

	assert.NotNil(t, e.Clock())
	assert.Equal(t, "run-1", e.RunToken())
}

func TestEngine_WithClock_ResumesSequence(t *testing.T) {
	e := newTestEngine(t, nil, WithClock(NewClockAt(41)))

	lib := step.NewLibrary("Suite")
	def := lib.Step("A", okBody(nil))
	_, err := e.Call(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, int64(42), e.Clock().Current())
}
