package headless_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/student/gameboy/jeebie/backend"
	"github.com/student/gameboy/jeebie/backend/headless"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/input/event"
	"github.com/student/gameboy/jeebie/video"
)

func TestHeadlessBackend(t *testing.T) {
	h := headless.New(3, headless.SnapshotConfig{})

	err := h.Init(backend.BackendConfig{Title: "Test"})
	assert.NoError(t, err)

	frame := video.NewFrameBuffer()

	for i := 0; i < 3; i++ {
		events, err := h.Update(frame)
		assert.NoError(t, err)

		if i < 2 {
			assert.Empty(t, events)
		} else {
			// quit event on the last frame
			assert.Len(t, events, 1)
			assert.Equal(t, action.EmulatorQuit, events[0].Action)
			assert.Equal(t, event.Press, events[0].Type)
		}
	}

	assert.NoError(t, h.Cleanup())
}

func TestHeadlessSnapshots(t *testing.T) {
	dir := t.TempDir()
	h := headless.New(2, headless.SnapshotConfig{
		Enabled:   true,
		Interval:  2,
		Directory: dir,
		ROMName:   "test",
	})
	require.NoError(t, h.Init(backend.BackendConfig{}))

	frame := video.NewFrameBuffer()
	h.Update(frame)
	h.Update(frame)

	ascii, err := os.ReadFile(filepath.Join(dir, "test_frame_2.txt"))
	require.NoError(t, err)
	assert.Len(t, ascii, (video.FramebufferWidth+1)*video.FramebufferHeight)

	ppm, err := os.ReadFile(filepath.Join(dir, "test_frame_2.ppm"))
	require.NoError(t, err)
	assert.Contains(t, string(ppm[:15]), "P6")
}

func TestCreateSnapshotConfig(t *testing.T) {
	cfg, err := headless.CreateSnapshotConfig(0, "", "roms/tetris.gb")
	assert.NoError(t, err)
	assert.False(t, cfg.Enabled)

	dir := t.TempDir()
	cfg, err = headless.CreateSnapshotConfig(30, dir, "roms/tetris.gb")
	assert.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, dir, cfg.Directory)
	assert.Equal(t, "tetris", cfg.ROMName)
}

func TestHeadlessImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*headless.Backend)(nil)
}
