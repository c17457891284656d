package debug

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two rows, bottom red, top blue
var pixels = []byte{
	255, 0, 0, 255, 255, 0, 0, 255,
	0, 0, 255, 255, 0, 0, 255, 255,
}

func TestFromBottomUp(t *testing.T) {
	img, err := FromBottomUp(pixels, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 1))

	_, err = FromBottomUp(pixels, 3, 2)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestSave(t *testing.T) {
	s := Screenshots{Dir: filepath.Join(t.TempDir(), "shots"), Prefix: "frame"}
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	path, err := s.Save(pixels, 2, 2, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "frame_2024-05-01_12-30-00.000.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}
