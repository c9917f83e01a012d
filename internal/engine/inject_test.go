package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/step"
)

type checkoutTest struct {
	Shopping *Proxy `steps:"ShoppingSteps"`
	Payment  *Proxy `steps:"PaymentSteps"`
	Untagged *Proxy
	Note     string
}

func TestEngine_Inject_BindsTaggedFields(t *testing.T) {
	e := newTestEngine(t, nil)

	shopping := step.NewLibrary("ShoppingSteps")
	shopping.Step("open_cart", okBody("cart"))
	payment := step.NewLibrary("PaymentSteps")

	target := &checkoutTest{Note: "kept"}
	require.NoError(t, e.Inject(target, shopping, payment))

	require.NotNil(t, target.Shopping)
	require.NotNil(t, target.Payment)
	assert.Same(t, shopping, target.Shopping.Library())
	assert.Same(t, payment, target.Payment.Library())
	assert.Nil(t, target.Untagged, "untagged fields are left untouched")
	assert.Equal(t, "kept", target.Note)

	result, err := target.Shopping.Call(context.Background(), "open_cart")
	require.NoError(t, err)
	assert.Equal(t, "cart", result)
}

func TestEngine_Inject_UnknownOwner(t *testing.T) {
	e := newTestEngine(t, nil)

	target := &checkoutTest{}
	err := e.Inject(target, step.NewLibrary("ShoppingSteps"))
	require.Error(t, err)
	assert.True(t, IsInvalidFieldError(err))
	assert.Contains(t, err.Error(), "PaymentSteps")
}

func TestEngine_Inject_WrongFieldType(t *testing.T) {
	type badTarget struct {
		Steps string `steps:"ShoppingSteps"`
	}

	e := newTestEngine(t, nil)
	err := e.Inject(&badTarget{}, step.NewLibrary("ShoppingSteps"))
	require.Error(t, err)
	assert.True(t, IsInvalidFieldError(err))
	assert.Contains(t, err.Error(), "want *engine.Proxy")
}

func TestEngine_Inject_UnexportedField(t *testing.T) {
	type hiddenTarget struct {
		steps *Proxy `steps:"ShoppingSteps"` //nolint:unused
	}

	e := newTestEngine(t, nil)
	err := e.Inject(&hiddenTarget{}, step.NewLibrary("ShoppingSteps"))
	require.Error(t, err)
	assert.True(t, IsInvalidFieldError(err))
	assert.Contains(t, err.Error(), "unexported")
}

func TestEngine_Inject_RejectsNonStructPointers(t *testing.T) {
	e := newTestEngine(t, nil)

	assert.Error(t, e.Inject(nil))
	assert.Error(t, e.Inject(checkoutTest{}), "value targets cannot be set")
	assert.Error(t, e.Inject((*checkoutTest)(nil)))

	n := 7
	assert.Error(t, e.Inject(&n))
}
