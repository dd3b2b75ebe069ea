package errors

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidModelError(t *testing.T) {
	err := NewInvalidModelError("Load", "free list holds %d nodes", 3)

	assert.Contains(t, err.Error(), "Load")
	assert.Contains(t, err.Error(), "invalid model")
	assert.Contains(t, err.Error(), "free list holds 3 nodes")

	var invalidErr *InvalidModelError
	require.True(t, As(err, &invalidErr))
	assert.Equal(t, "Load", invalidErr.Op)
}

func TestDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 7, 1)

	assert.Contains(t, err.Error(), "Expected 4, got 7")
	assert.Contains(t, err.Error(), "features")

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 7, dimErr.Got)
	assert.Equal(t, 1, dimErr.Axis)

	rowErr := NewDimensionError("Predict", 2, 3, 0)
	assert.Contains(t, rowErr.Error(), "rows")
}

func TestNumericalInstabilityErrorTruncatesValues(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	err := NewNumericalInstabilityError("contributions", values, 9)

	assert.Contains(t, err.Error(), "row 9")
	assert.Contains(t, err.Error(), "...")

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, values, numErr.Values)
}

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer SetWarningHandler(nil)

	Warn(NewDegenerateSplitWarning(5, 0))

	require.Len(t, captured, 1)
	var warning *DegenerateSplitWarning
	require.True(t, As(captured[0], &warning))
	assert.Equal(t, 5, warning.NodeID)
}

func TestZerologWarnFuncTakesPrecedence(t *testing.T) {
	var handled, sunk int
	SetWarningHandler(func(error) { handled++ })
	SetZerologWarnFunc(func(error) { sunk++ })
	defer func() {
		SetWarningHandler(nil)
		SetZerologWarnFunc(nil)
	}()

	Warn(New("something off"))

	assert.Equal(t, 0, handled)
	assert.Equal(t, 1, sunk)
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Warn().Object("warning", NewDegenerateSplitWarning(7, 0)).Msg("degenerate split")
	assert.Contains(t, buf.String(), `"node_id":7`)
	assert.Contains(t, buf.String(), `"type":"DegenerateSplitWarning"`)

	buf.Reset()
	logger.Error().Object("error", &DimensionError{Op: "Predict", Expected: 2, Got: 5, Axis: 1}).Msg("shape")
	assert.Contains(t, buf.String(), `"expected":2`)
	assert.Contains(t, buf.String(), `"axis_name":"features"`)
}

func TestCheckContributions(t *testing.T) {
	assert.NoError(t, CheckContributions("contributions", []float32{1, -2, 0.5}, 0))

	nan := float32(0)
	nan = nan / nan
	err := CheckContributions("contributions", []float32{1, nan}, 3)
	require.Error(t, err)
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 3, numErr.Row)
}

func TestWrapPreservesChain(t *testing.T) {
	base := NewInvalidModelError("Load", "short stream")
	wrapped := Wrapf(base, "loading tree %d", 2)

	var invalidErr *InvalidModelError
	assert.True(t, As(wrapped, &invalidErr))
	assert.True(t, Is(wrapped, base))
	assert.Contains(t, fmt.Sprintf("%v", wrapped), "loading tree 2")
}
