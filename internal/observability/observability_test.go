package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackStoreOperation_LabelsOutcome(t *testing.T) {
	before := testutil.CollectAndCount(StoreOperationDuration)

	var okErr error
	TrackStoreOperation("test_ok_op", &okErr)()

	failErr := errors.New("boom")
	TrackStoreOperation("test_fail_op", &failErr)()

	assert.Equal(t, before+2, testutil.CollectAndCount(StoreOperationDuration))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "teamsemu-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartStoreSpan(context.Background(), "get_post")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("not found"))
}
