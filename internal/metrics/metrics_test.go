package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Deliveries)
	Deliveries.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Deliveries))

	c := LedgerOperations.WithLabelValues("add_credit", "ok")
	before = testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
