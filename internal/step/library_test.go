package step

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopBody(ctx context.Context, args ...any) (any, error) {
	return nil, nil
}

func TestLibrary_Registration(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")

	open := lib.Step("open_cart", nopBody)
	flow := lib.Group("purchase_flow", nopBody)
	helper := lib.Plain("current_total", nopBody)

	assert.Equal(t, "CheckoutSteps", lib.Owner())
	assert.Equal(t, KindStep, open.Kind)
	assert.Equal(t, KindGroup, flow.Kind)
	assert.Equal(t, KindPlain, helper.Kind)
	assert.Equal(t, "CheckoutSteps", open.Owner)
}

func TestLibrary_Markers(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")

	pending := lib.Step("pay", nopBody, Pending())
	ignored := lib.Step("refund", nopBody, Ignored())
	normal := lib.Step("open_cart", nopBody)

	assert.True(t, pending.Pending)
	assert.False(t, pending.Ignored)
	assert.True(t, ignored.Ignored)
	assert.False(t, normal.Pending)
	assert.False(t, normal.Ignored)
}

func TestLibrary_LookupAndOrder(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")
	lib.Step("first", nopBody)
	lib.Plain("second", nopBody)
	lib.Group("third", nopBody)

	def, ok := lib.Lookup("second")
	require.True(t, ok)
	assert.Equal(t, "second", def.Name)

	_, ok = lib.Lookup("missing")
	assert.False(t, ok)

	// Registration order is preserved.
	defs := lib.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "first", defs[0].Name)
	assert.Equal(t, "second", defs[1].Name)
	assert.Equal(t, "third", defs[2].Name)
	assert.Equal(t, 3, lib.Len())
}

func TestLibrary_DefinitionsIsACopy(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")
	lib.Step("only", nopBody)

	defs := lib.Definitions()
	defs[0] = nil

	fresh := lib.Definitions()
	require.NotNil(t, fresh[0])
	assert.Equal(t, "only", fresh[0].Name)
}

func TestLibrary_NilBodyPanics(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")
	assert.Panics(t, func() {
		lib.Step("broken", nil)
	})
}

func TestLibrary_DuplicateNamePanics(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")
	lib.Step("open_cart", nopBody)
	assert.Panics(t, func() {
		lib.Plain("open_cart", nopBody)
	})
}

func TestDefinition_Invoke(t *testing.T) {
	lib := NewLibrary("CheckoutSteps")
	def := lib.Step("add_item", func(ctx context.Context, args ...any) (any, error) {
		require.Len(t, args, 2)
		return args[0], nil
	})

	result, err := def.Invoke(context.Background(), "widget", 3)
	require.NoError(t, err)
	assert.Equal(t, "widget", result)
}
