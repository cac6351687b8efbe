package invariant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreconditionPanicsOnFalse(t *testing.T) {
	assert.NotPanics(t, func() { Precondition(true, "fine") })
	assert.Panics(t, func() { Precondition(false, "bad input: %d", 42) })
}

func TestPostconditionPanicsOnFalse(t *testing.T) {
	assert.NotPanics(t, func() { Postcondition(true, "fine") })
	assert.Panics(t, func() { Postcondition(false, "bad output") })
}

func TestInvariantPanicsOnFalse(t *testing.T) {
	assert.NotPanics(t, func() { Invariant(true, "fine") })
	assert.Panics(t, func() { Invariant(false, "broken invariant") })
}

func TestNotNilPanicsOnNilAndTypedNilPointer(t *testing.T) {
	assert.Panics(t, func() { NotNil(nil, "x") })

	var p *int
	assert.Panics(t, func() { NotNil(p, "p") })

	v := 1
	assert.NotPanics(t, func() { NotNil(&v, "v") })
}

func TestInRangePanicsOutsideBounds(t *testing.T) {
	assert.NotPanics(t, func() { InRange(5, 0, 10, "x") })
	assert.Panics(t, func() { InRange(-1, 0, 10, "x") })
	assert.Panics(t, func() { InRange(11, 0, 10, "x") })
}

func TestExpectNoErrorPanicsOnNonNilError(t *testing.T) {
	assert.NotPanics(t, func() { ExpectNoError(nil, "ok") })
	assert.Panics(t, func() { ExpectNoError(errors.New("boom"), "doing the thing") })
}
