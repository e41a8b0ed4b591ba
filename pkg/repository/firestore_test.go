package repository

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestOpCtxAppliesDeadline(t *testing.T) {
	r := &Firestore{timeout: defaultTimeout}

	ctx, cancel := r.opCtx(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	gt.True(t, ok)
	gt.True(t, time.Until(deadline) <= defaultTimeout)
}

func TestWithTimeoutOverridesDefault(t *testing.T) {
	r := &Firestore{timeout: defaultTimeout}
	WithTimeout(time.Second)(r)
	gt.Equal(t, r.timeout, time.Second)

	ctx, cancel := r.opCtx(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	gt.True(t, ok)
	gt.True(t, time.Until(deadline) <= time.Second)
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	r := &Firestore{timeout: defaultTimeout}
	WithTimeout(0)(r)
	gt.Equal(t, r.timeout, defaultTimeout)
	WithTimeout(-time.Second)(r)
	gt.Equal(t, r.timeout, defaultTimeout)
}
