package bvh

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
)

func TestParseGolden(t *testing.T) {
	t.Parallel()

	p, err := Parse(strings.NewReader(pairGolden))
	require.NoError(t, err)

	assert.Equal(t, []string{"hips", "spine"}, p.JointNames())
	assert.Equal(t, "", p.Joints[0].Parent)
	assert.Equal(t, "hips", p.Joints[1].Parent)
	assert.Equal(t, landmark.Point3{Y: 10}, p.Joints[1].Offset)
	assert.Nil(t, p.Joints[0].EndSite)
	require.NotNil(t, p.Joints[1].EndSite)
	assert.Equal(t, landmark.Point3{Y: 5}, *p.Joints[1].EndSite)
	assert.Equal(t, 9, p.ChannelCount())
	assert.InDelta(t, 0.0333333, p.FrameTime, 1e-12)
	require.Len(t, p.Motion, 3)
	assert.Equal(t, []float64{10, 100, 0, 0, 0, -90, 90, 0, 0}, p.Motion[1])
}

func TestParseRoundTripsEveryProfile(t *testing.T) {
	t.Parallel()

	for _, name := range skeleton.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := skeleton.Lookup(name)
			require.NoError(t, err)
			h := skeleton.MustNew(p)

			frames := []landmark.Frame{walkingFrame(0), walkingFrame(0.5)}
			doc, err := Build(h, frames, 30)
			require.NoError(t, err)

			parsed, err := Parse(bytes.NewReader(doc.Marshal()))
			require.NoError(t, err)
			assert.Equal(t, names(h), parsed.JointNames())
			assert.Equal(t, h.ChannelCount(), parsed.ChannelCount())
			require.Len(t, parsed.Motion, 2)
			for i, row := range parsed.Motion {
				require.Len(t, row, len(doc.Motion[i]))
				for c := range row {
					assert.InDelta(t, doc.Motion[i][c], row[c], 5e-7)
				}
			}
			for _, j := range parsed.Joints {
				assert.Equal(t, h.IsLeaf(j.Name), j.EndSite != nil, j.Name)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "no joints"},
		{"no motion", "HIERARCHY\nROOT a\n{\n  OFFSET 0 0 0\n  CHANNELS 3 Xrotation Yrotation Zrotation\n}\n", "missing MOTION"},
		{"unbalanced", "HIERARCHY\n}\n", "unbalanced }"},
		{"bad channels", "HIERARCHY\nROOT a\n{\n  CHANNELS 4 Xrotation\n}\n", "channel count"},
		{"two roots", "HIERARCHY\nROOT a\n{\n}\nROOT b\n", "multiple roots"},
		{"short row", strings.Replace(pairGolden, "10.000000 100.000000", "100.000000", 1), "motion line has 8 values"},
		{"frame count", strings.Replace(pairGolden, "Frames: 3", "Frames: 4", 1), "declares 4 frames, found 3"},
		{"junk", "HIERARCHY\nBONE a\n", "unexpected token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
