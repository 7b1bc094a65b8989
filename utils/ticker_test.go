package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/painter/logging"
)

func TestSlowLogger(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()
	stop := SlowLogger(context.Background(), mock, "still working", "job", "test", logger)

	mock.Add(time.Second)
	test.That(t, logs.FilterMessage("still working").Len(), test.ShouldEqual, 0)

	mock.Add(time.Second)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("still working").Len(), test.ShouldEqual, 1)
	})
	entry := logs.FilterMessage("still working").All()[0]
	test.That(t, entry.ContextMap()["job"], test.ShouldEqual, "test")
	test.That(t, entry.ContextMap()["time_elapsed"], test.ShouldEqual, "2s")

	mock.Add(3 * time.Second)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("still working").Len(), test.ShouldEqual, 2)
	})

	stop()
	mock.Add(time.Minute)
	test.That(t, logs.FilterMessage("still working").Len(), test.ShouldEqual, 2)
}
