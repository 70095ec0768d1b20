package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/movevote/movevote/jobs"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	mr := miniredis.RunT(t)
	cli, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Trigger(context.Background(), "bogus:job", "2025-03")
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerEnqueuesSupportedJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	cli, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	defer cli.Close()

	for _, name := range []string{jobs.TaskWinnersRecalc, jobs.TaskMetadataRefresh} {
		info, err := cli.Trigger(context.Background(), name, "2025-02")
		require.NoError(t, err)
		require.Equal(t, name, info.Type)
		require.Equal(t, jobs.QueueDefault, info.Queue)
	}

	require.True(t, mr.Exists("asynq:{default}:pending"))
}

func TestNilCLIIsSafe(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), jobs.TaskWinnersRecalc, "")
	require.Error(t, err)
	_, err = cli.InspectQueue(context.Background())
	require.Error(t, err)
}
