package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []Event {
	return []Event{
		{Seq: 1, Kind: EventStepStarted, Owner: "ShoppingSteps", Step: "open_cart"},
		{Seq: 2, Kind: EventStepFinished, Owner: "ShoppingSteps", Step: "open_cart"},
		{Seq: 3, Kind: EventStepStarted, Owner: "ShoppingSteps", Step: "add_item: widget"},
		{Seq: 4, Kind: EventStepFailed, Owner: "ShoppingSteps", Step: "add_item: widget", Error: "boom"},
		{Seq: 5, Kind: EventStepFinished, Owner: "ShoppingSteps", Step: "add_item: widget"},
		{Seq: 6, Kind: EventStepIgnored, Owner: "CheckoutSteps", Step: "pay"},
		{Seq: 7, Kind: EventTestFinished, Tally: &TallySummary{Executed: 2}},
	}
}

func TestPatternEmptyMatchesEverything(t *testing.T) {
	trace := sampleTrace()
	matched := Filter(trace, Pattern{})
	assert.Len(t, matched, len(trace))
}

func TestPatternByKind(t *testing.T) {
	trace := sampleTrace()

	started := Filter(trace, Pattern{Kind: EventStepStarted})
	require.Len(t, started, 2)
	assert.Equal(t, int64(1), started[0].Seq)
	assert.Equal(t, int64(3), started[1].Seq)
}

func TestPatternByOwnerAndStep(t *testing.T) {
	trace := sampleTrace()

	p := Pattern{Owner: "ShoppingSteps", Step: "add_item: widget"}
	matched := Filter(trace, p)
	require.Len(t, matched, 3)
	assert.Equal(t, EventStepStarted, matched[0].Kind)
	assert.Equal(t, EventStepFailed, matched[1].Kind)
	assert.Equal(t, EventStepFinished, matched[2].Kind)
}

func TestPatternAllConditionsMustHold(t *testing.T) {
	e := Event{Kind: EventStepStarted, Owner: "ShoppingSteps", Step: "open_cart"}

	assert.True(t, Pattern{Kind: EventStepStarted, Owner: "ShoppingSteps"}.Matches(e))
	assert.False(t, Pattern{Kind: EventStepStarted, Owner: "CheckoutSteps"}.Matches(e))
	assert.False(t, Pattern{Kind: EventStepFinished, Owner: "ShoppingSteps"}.Matches(e))
}

func TestFirst(t *testing.T) {
	trace := sampleTrace()

	e, ok := First(trace, Pattern{Kind: EventStepFailed})
	require.True(t, ok)
	assert.Equal(t, int64(4), e.Seq)

	_, ok = First(trace, Pattern{Kind: EventGroupStarted})
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	trace := sampleTrace()

	assert.Equal(t, 2, Count(trace, Pattern{Kind: EventStepFinished}))
	assert.Equal(t, 1, Count(trace, Pattern{Owner: "CheckoutSteps"}))
	assert.Equal(t, 0, Count(trace, Pattern{Step: "refund"}))
}

func TestFilterReturnsNilWhenNothingMatches(t *testing.T) {
	matched := Filter(sampleTrace(), Pattern{Owner: "InventorySteps"})
	assert.Nil(t, matched)
}
