package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	dir           string
	madeRoomFor   []string
	existedBefore bool
	stamped       []string
}

func (f *fakeStore) Dir() string { return f.dir }

func (f *fakeStore) MakeRoom(name string) {
	f.madeRoomFor = append(f.madeRoomFor, name)
	_, err := os.Stat(filepath.Join(f.dir, name))
	f.existedBefore = err == nil
}

func (f *fakeStore) Stamp(path string) { f.stamped = append(f.stamped, path) }

func stubFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestNormalizeWAVPassthrough(t *testing.T) {
	store := &fakeStore{dir: t.TempDir()}
	n := NewNormalizer(store, "clearly-not-present-ffmpeg", 0)

	got, err := n.Normalize(context.Background(), "/uploads/Memo.WAV")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/Memo.WAV", got)
	assert.Empty(t, store.madeRoomFor)
}

func TestNormalizeMissingFFmpeg(t *testing.T) {
	store := &fakeStore{dir: t.TempDir()}
	n := NewNormalizer(store, "clearly-not-present-ffmpeg", 0)

	_, err := n.Normalize(context.Background(), "/uploads/memo.m4a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.Contains(t, err.Error(), "clearly-not-present-ffmpeg")
	assert.Empty(t, store.madeRoomFor)
}

func TestNormalizeConverts(t *testing.T) {
	ffmpeg := stubFFmpeg(t, `for last; do :; done
printf 'RIFF' > "$last"
`)
	store := &fakeStore{dir: t.TempDir()}
	n := NewNormalizer(store, ffmpeg, 16000)

	got, err := n.Normalize(context.Background(), "/uploads/voice.memo.m4a")
	require.NoError(t, err)

	want := filepath.Join(store.dir, "voice.memo.wav")
	assert.Equal(t, want, got)
	assert.FileExists(t, want)
	assert.Equal(t, []string{"voice.memo.wav"}, store.madeRoomFor)
	assert.False(t, store.existedBefore, "eviction must run before the file is written")
	assert.Equal(t, []string{want}, store.stamped)
}

func TestNormalizeConversionFailure(t *testing.T) {
	ffmpeg := stubFFmpeg(t, `for last; do :; done
printf 'partial' > "$last"
echo "Invalid data found when processing input" >&2
exit 1
`)
	store := &fakeStore{dir: t.TempDir()}
	n := NewNormalizer(store, ffmpeg, 0)

	_, err := n.Normalize(context.Background(), "/uploads/broken.ogg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "Invalid data found")

	var convErr *ConversionFailedError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "/uploads/broken.ogg", convErr.Path)
	assert.NoFileExists(t, filepath.Join(store.dir, "broken.wav"))
	assert.Empty(t, store.stamped)
}

func TestFFmpegArgs(t *testing.T) {
	n := NewNormalizer(&fakeStore{}, "", 16000)
	assert.Equal(t, []string{
		"-i", "in.mp3", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", "-y", "out.wav",
	}, n.ffmpegArgs("in.mp3", "out.wav"))
	assert.Equal(t, DefaultFFmpeg, n.ffmpeg)
}

func TestConvertedName(t *testing.T) {
	assert.Equal(t, "call.wav", ConvertedName("/a/b/call.m4a"))
	assert.Equal(t, "a.b.wav", ConvertedName("a.b.flac"))
	assert.Equal(t, "noext.wav", ConvertedName("noext"))
}

func TestValidateAudioFormat(t *testing.T) {
	for _, name := range []string{"a.wav", "b.MP3", "c.m4a", "d.flac", "e.ogg"} {
		assert.True(t, ValidateAudioFormat(name), name)
	}
	for _, name := range []string{"a.webm", "b.txt", "noext", "wav"} {
		assert.False(t, ValidateAudioFormat(name), name)
	}
}

func sine(seconds float64, rate int) []float32 {
	n := int(seconds * float64(rate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	return out
}

func TestWriteClipAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := sine(1.5, 8000)
	require.NoError(t, WriteClip(path, samples, 8000))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, src.SampleRate)
	require.Len(t, src.Samples, len(samples))
	assert.InDelta(t, 1.5, src.Duration(), 1e-9)
	for i := 0; i < len(samples); i += 997 {
		assert.InDelta(t, samples[i], src.Samples[i], 1e-3)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConversionFailed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestDownmix(t *testing.T) {
	stereo := []int{16384, -16384, 32767, 32767}
	got := downmix(stereo, 2, 16)
	require.Len(t, got, 2)
	assert.InDelta(t, 0, got[0], 1e-6)
	assert.InDelta(t, 1, got[1], 1e-3)

	unsigned := downmix([]int{128, 255, 0}, 1, 8)
	assert.InDelta(t, 0, unsigned[0], 1e-6)
	assert.InDelta(t, 0.99, unsigned[1], 0.01)
	assert.InDelta(t, -1, unsigned[2], 1e-6)
}

func TestSourceSlice(t *testing.T) {
	src := &Source{Samples: make([]float32, 100), SampleRate: 10}

	clip, err := src.Slice(5, 10)
	require.NoError(t, err)
	assert.Len(t, clip, 50)

	clip, err = src.Slice(9, 14)
	require.NoError(t, err)
	assert.Len(t, clip, 10)

	_, err = src.Slice(10, 15)
	assert.Error(t, err)
}

func TestCheckDuration(t *testing.T) {
	src := &Source{Samples: make([]float32, 121*10), SampleRate: 10}

	err := CheckDuration(src, 120)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDurationExceeded)

	var exceeded DurationExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 120.0, exceeded.Limit)
	assert.InDelta(t, 121.0, exceeded.Measured, 1e-9)
	assert.Equal(t, "Audio too long. Maximum: 120s (~2.0 min), received: 121.0s (~2.0 min). "+
		"Please upload a shorter audio file.", err.Error())

	assert.NoError(t, CheckDuration(src, 121))
	assert.NoError(t, CheckDuration(src, 0))
	assert.NoError(t, CheckDuration(&Source{}, 120))
}
