package cli

import (
	"testing"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupCLI(t *testing.T) {
	root := &cobra.Command{Use: "tracelog"}
	SetupCLI(root)

	for _, name := range []string{"serve", "list", "show", "stats"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("backend"))
	assert.NotNil(t, root.PersistentFlags().Lookup("db"))
}

func TestQueryFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "list"}
	addFilterFlags(cmd)
	cmd.Flags().String("sort-by", "", "")
	cmd.Flags().String("sort-order", "", "")
	cmd.Flags().Int("page", 1, "")
	cmd.Flags().Int("limit", query.DefaultLimit, "")

	require.NoError(t, cmd.ParseFlags([]string{
		"--status", "failed",
		"--final-decision", "request_human_assistance",
		"--step-type", "error",
		"--start-date", "2025-03-01",
		"--sort-by", "total_duration_ms",
		"--sort-order", "asc",
		"--page", "3",
	}))

	assert.Equal(t, query.Query{
		Status:        "failed",
		FinalDecision: "request_human_assistance",
		StepType:      "error",
		StartDate:     "2025-03-01",
		SortBy:        "total_duration_ms",
		SortOrder:     "asc",
		Page:          3,
		Limit:         query.DefaultLimit,
	}, queryFromFlags(cmd))
}

func TestQueryFromFlagsWithoutPaging(t *testing.T) {
	cmd := &cobra.Command{Use: "stats"}
	addFilterFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--business-id", "biz-9"}))

	q := queryFromFlags(cmd)
	assert.Equal(t, "biz-9", q.BusinessID)
	assert.Zero(t, q.Page)
	assert.Zero(t, q.Limit)
}
