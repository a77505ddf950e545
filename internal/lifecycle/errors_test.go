package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rmatrack/internal/rma"
)

func TestErrorMessage(t *testing.T) {
	err := newPersistence(creator, "RMA-2403AAA", "could not save records", errDiskFull)
	assert.Equal(t, "PERSISTENCE: could not save records (rma=RMA-2403AAA): no space left on device", err.Error())
	assert.ErrorIs(t, err, errDiskFull)

	v := newValidation(creator, []string{"customer", "product"}, "")
	assert.Equal(t, "VALIDATION: please complete all required fields: customer, product", v.Error())
}

func TestPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("cli: %w", newInvalidState(reviewer, "RMA-1", rma.StatusSubmitted, rma.StatusInspected))

	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, CodeInvalidState, CodeOf(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
