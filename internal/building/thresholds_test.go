package building

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarclass/internal/fsutil"
)

func TestThresholdsRoundTrip(t *testing.T) {
	// Deliberately awkward values: the round-trip must be bitwise equal on
	// all eight fields.
	want := Thresholds{
		MinConfidenceConfirmation:        0.123456789123456789,
		MinFracConfirmation:              1.0 / 3.0,
		MinFracConfirmationFactorOverlay: 0.97,
		MinUniDBOverlayFrac:              0.95,
		MinConfidenceRefutation:          2.0 / 7.0,
		MinFracRefutation:                0.7,
		MinEntropyUncertainty:            1.4036774610288023,
		MinFracEntropyUncertain:          0.33,
	}
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, want.Dump(fsutil.OSFileSystem{}, path))

	got, err := LoadThresholds(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("thresholds round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadThresholdsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	data := []byte("min_confidence_confirmation: 0.5\nmin_typo_key: 1.0\n")
	require.NoError(t, fsutil.OSFileSystem{}.WriteFile(path, data, 0o644))

	_, err := LoadThresholds(path)
	assert.Error(t, err)
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	_, err := LoadThresholds(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
