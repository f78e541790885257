// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audrx/formats/wav"
	"github.com/ik5/audrx/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, dir string, rate, channels, frames int) string {
	t.Helper()

	samples := make([]int16, channels*frames)
	for i := range samples {
		samples[i] = 4096
	}

	path := filepath.Join(dir, "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, rate, channels, samples))
	require.NoError(t, f.Close())

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)

	err := root.Execute()

	return out.String(), err
}

func TestInspect_Passthrough(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 48000, 2, 9600)

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "48000 Hz")
	assert.Contains(t, out, "200ms")
	assert.Regexp(t, `frames:\s+10\n`, out)
	assert.Contains(t, out, "passthrough to 2 channels")
}

func TestInspect_VirtualSpeakers(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 48000, 4, 960)

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "virtual speakers (quad)")
	assert.Contains(t, out, "speaker 0:")
	assert.Contains(t, out, "speaker 3:")
	assert.NotContains(t, out, "speaker 4:")
}

func TestInspect_Metadata(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, 48000, 2, 960)

	metaPath := filepath.Join(dir, "layout.xml")
	doc := `<VirtualSpeakers><Speaker x="-1" y="0" z="1"/><Speaker x="1" y="0" z="1"/></VirtualSpeakers>`
	require.NoError(t, os.WriteFile(metaPath, []byte(doc), 0o600))

	out, err := execute(t, "inspect", "--metadata", metaPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "virtual speakers (metadata)")
	assert.Contains(t, out, "(-1, 0, 1)")
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, 48000, 4, 960)

	cfgPath := filepath.Join(dir, "audrx.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  channels: 6\n"), 0o600))

	out, err := execute(t, "inspect", "--config", cfgPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "virtual speakers (quad)", "file value applies")

	out, err = execute(t, "inspect", "--config", cfgPath, "--channels", "4", path)
	require.NoError(t, err)
	assert.Contains(t, out, "passthrough to 4 channels", "flag overrides file")

	t.Setenv("AUDRX_SPEAKERS_CREATE_VIRTUAL", "false")
	out, err = execute(t, "inspect", "--config", cfgPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "passthrough to 6 channels", "environment overrides file")
}

func TestInvalidConfiguration(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 48000, 2, 960)

	_, err := execute(t, "inspect", "--log-level", "verbose", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestRender_WritesWAV(t *testing.T) {
	dir := t.TempDir()
	in := writeWAV(t, dir, 44100, 2, 44100/2)
	out := filepath.Join(dir, "out.wav")

	_, err := execute(t, "render", "--rate", "8000", "--mono", in, out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8000, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	samples, err := audiotest.ReadAll(src, 4096)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(samples), 3800)
	assert.InDelta(t, 0.125, samples[100], 0.001)
}

func TestRender_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "render", filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
