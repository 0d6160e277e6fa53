package landmark

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("pads short input with absent entries", func(t *testing.T) {
		t.Parallel()
		out := Normalize([]*Point3{Pt(1, 2, 3)}, 4)
		require.Len(t, out, 4)
		assert.Equal(t, Point3{X: 1, Y: 2, Z: 3}, *out[0])
		assert.Nil(t, out[1])
		assert.Nil(t, out[3])
	})

	t.Run("drops entries past the landmark count", func(t *testing.T) {
		t.Parallel()
		out := Normalize([]*Point3{Pt(1, 0, 0), Pt(2, 0, 0), Pt(3, 0, 0)}, 2)
		require.Len(t, out, 2)
		assert.Equal(t, 2.0, out[1].X)
	})

	t.Run("does not alias caller points", func(t *testing.T) {
		t.Parallel()
		in := []*Point3{Pt(1, 1, 1), nil}
		out := Normalize(in, 2)
		in[0].X = 99
		in[1] = Pt(5, 5, 5)
		assert.Equal(t, 1.0, out[0].X)
		assert.Nil(t, out[1])
	})

	t.Run("nil input yields all absent", func(t *testing.T) {
		t.Parallel()
		out := Normalize(nil, 3)
		assert.Equal(t, Frame{nil, nil, nil}, out)
		assert.Equal(t, 0, out.Present())
	})
}

func TestFrameAt(t *testing.T) {
	f := Frame{Pt(0, 1, 0), nil}
	assert.NotNil(t, f.At(0))
	assert.Nil(t, f.At(1))
	assert.Nil(t, f.At(-1))
	assert.Nil(t, f.At(40))
}

func TestName(t *testing.T) {
	assert.Equal(t, "nose", Name(Nose))
	assert.Equal(t, "left_hip", Name(LeftHip))
	assert.Equal(t, "right_foot_index", Name(RightFootIndex))
	assert.Equal(t, "landmark_40", Name(40))
}

func TestArchiveRoundTrip(t *testing.T) {
	frames := []Frame{
		{Pt(0.1, 0.2, 0.3), nil, Pt(-1.5e-7, 2.0000001, 1.0/3.0)},
		{nil, nil, nil},
	}
	in := NewArchive("session-1", 30, frames)

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, in))

	out, err := ReadArchive(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 3, out.LandmarkCount)
}

func TestReadArchiveLegacyArray(t *testing.T) {
	legacy := `[[{"x":0,"y":1,"z":0},null],[null,{"x":1,"y":2,"z":3}]]`

	a, err := ReadArchive(strings.NewReader(legacy))
	require.NoError(t, err)
	require.Len(t, a.Frames, 2)
	assert.Equal(t, ArchiveVersion, a.Version)
	assert.Equal(t, 2, a.LandmarkCount)
	assert.Nil(t, a.Frames[0][1])
	assert.Equal(t, Point3{X: 1, Y: 2, Z: 3}, *a.Frames[1][1])
}

func TestReadArchiveInfersLandmarkCount(t *testing.T) {
	a, err := ReadArchive(strings.NewReader(`{"version":1,"frames":[[null],[{"x":0,"y":1,"z":0},null,null]]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, a.LandmarkCount)

	a, err = ReadArchive(strings.NewReader(`{"version":1,"landmark_count":33,"frames":[[null]]}`))
	require.NoError(t, err)
	assert.Equal(t, 33, a.LandmarkCount)
}

func TestReadArchiveErrors(t *testing.T) {
	cases := map[string]string{
		"empty":                  "   ",
		"bad json":               "{not json",
		"future":                 `{"version":99,"frames":[]}`,
		"bad element":            `[[{"x":"a"}]]`,
		"frame wider than count": `{"version":1,"landmark_count":1,"frames":[[null,{"x":1,"y":2,"z":3}]]}`,
		"negative count":         `{"version":1,"landmark_count":-2,"frames":[]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadArchive(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
