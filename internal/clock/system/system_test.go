package system

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/leadgen-scraper/internal/scraper"
)

var _ scraper.Clock = (*Clock)(nil)

func TestNowStampsRecordsInUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.WithinRange(t, got, before, after)
	// created_at and updated_at are rendered with a Z suffix in API responses.
	require.True(t, strings.HasSuffix(got.Format(time.RFC3339Nano), "Z"), got.Format(time.RFC3339Nano))
}
