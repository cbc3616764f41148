package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Equal(t, "short", Wrap("short", 10))
	assert.Equal(t, "/kitti/d...", Wrap("/kitti/depth/train", 8))
	assert.Equal(t, "/kitti/d~", Wrap("/kitti/depth/train", 8, "~"))
}

func TestRightWrap(t *testing.T) {
	p := "/kitti/depth/train/2011_09_26_drive_0001_sync/0000000005.png"
	assert.Equal(t, p, RightWrap(p, len(p)))
	assert.Equal(t, "...0000000005.png", RightWrap(p, 14))
	assert.Equal(t, "~0000000005.png", RightWrap(p, 14, "~"))
}

func TestWrapRunes(t *testing.T) {
	assert.Equal(t, "über...", Wrap("überlang", 4))
	assert.Equal(t, "...äöü", RightWrap("aaaäöü", 3))
}
