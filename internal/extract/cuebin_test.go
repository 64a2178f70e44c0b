package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roller/internal/config"
	"roller/internal/deps"
	"roller/internal/extract"
	"roller/internal/services"
	"roller/internal/testsupport"
)

// splitStub emulates `bchunk -w BIN CUE BASENAME` by copying the BIN to
// BASENAME01.iso and writing an audio track.
const splitStub = `if [ $# -eq 0 ]; then
  echo "Usage: bchunk [-v] [-r] [-p (PSX)] [-w (wav)] [-s (swabaudio)] <image.bin> <image.cue> <basename>" >&2
  exit 1
fi
cp "$2" "${4}01.iso"
printf 'RIFF-track02' > "${4}02.wav"
printf 'RIFF-track03' > "${4}03.wav"`

// multiFileStub handles one FILE per invocation: the data file becomes
// track 01 and the audio file track 02.
const multiFileStub = `if [ $# -eq 0 ]; then
  echo "usage: bchunk <image.bin> <image.cue> <basename>" >&2
  exit 1
fi
if grep -q MODE "$3"; then
  cp "$2" "${4}01.iso"
else
  cp "$2" "${4}02.wav"
fi`

const mixedSheet = `REM GENRE Game
FILE "game.bin" BINARY
  TRACK 01 MODE1/2048
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    PREGAP 00:02:00
    INDEX 01 10:00:00
  TRACK 03 AUDIO
    INDEX 01 12:30:00
`

func writeDisc(t *testing.T, dir string) (cue, bin string) {
	t.Helper()
	image, err := testsupport.NewISOBuilder().
		WithJoliet().
		AddFile("ROLLER/FATDATA/Track1.trk", []byte("track one")).
		AddFile("ROLLER/FATDATA/palette.pal", testsupport.Pattern("pal", 768)).
		Build()
	if err != nil {
		t.Fatalf("build image: %v", err)
	}
	bin = testsupport.WriteBytes(t, filepath.Join(dir, "game.bin"), image)
	cue = testsupport.WriteBytes(t, filepath.Join(dir, "game.cue"), []byte(mixedSheet))
	return cue, bin
}

func assertWorkDirClean(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read work dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "roller-cuebin-") {
			t.Fatalf("work directory %s left behind", e.Name())
		}
	}
}

func TestExtractCueBinWithStubSplitter(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": splitStub}))
	cue, _ := writeDisc(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "out")

	res, err := newCoordinator(t, cfg).Extract(context.Background(), cue, dest, extract.WithAudio(""))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Success || res.Format != "cue/bin" {
		t.Fatalf("expected cue/bin success, got %+v", res)
	}
	if res.AssetPath != filepath.Join(dest, "fatdata") {
		t.Fatalf("unexpected asset path %q", res.AssetPath)
	}
	assertTree(t, res.AssetPath, map[string][]byte{
		"Track1.trk":  []byte("track one"),
		"palette.pal": testsupport.Pattern("pal", 768),
	})
	want := []string{filepath.Join(dest, "audio", "track02.wav"), filepath.Join(dest, "audio", "track03.wav")}
	if strings.Join(res.AudioTracks, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected audio tracks %v", res.AudioTracks)
	}
	assertWorkDirClean(t, cfg)
}

func TestExtractCueBinAudioOnRequestOnly(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": splitStub}))
	cue, _ := writeDisc(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), cue, dest)
	if !res.Success || len(res.AudioTracks) != 0 {
		t.Fatalf("expected success without audio, got %+v", res)
	}
	assertMissing(t, filepath.Join(dest, "audio"))
}

func TestExtractBinResolvesSiblingSheet(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": splitStub}))
	_, bin := writeDisc(t, t.TempDir())
	audioDir := filepath.Join(t.TempDir(), "music")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), bin, filepath.Join(t.TempDir(), "out"), extract.WithAudio(audioDir))
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if len(res.AudioTracks) != 2 || filepath.Dir(res.AudioTracks[0]) != audioDir {
		t.Fatalf("expected audio in %s, got %v", audioDir, res.AudioTracks)
	}
}

func TestExtractCueBinMultiFileSheet(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": multiFileStub}))
	dir := t.TempDir()
	_, _ = writeDisc(t, dir)
	testsupport.WriteBytes(t, filepath.Join(dir, "Track 02.bin"), []byte("pcm audio"))
	cue := testsupport.WriteBytes(t, filepath.Join(dir, "multi.cue"), []byte(`FILE "game.bin" BINARY
  TRACK 01 MODE1/2048
    INDEX 01 00:00:00
FILE "track 02.bin" BINARY
  TRACK 02 AUDIO
    INDEX 01 00:00:00
`))
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), cue, dest, extract.WithAudio(""))
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if len(res.AudioTracks) != 1 {
		t.Fatalf("expected one audio track, got %v", res.AudioTracks)
	}
	data, err := os.ReadFile(res.AudioTracks[0])
	if err != nil || string(data) != "pcm audio" {
		t.Fatalf("unexpected audio contents %q err=%v", data, err)
	}
}

func TestExtractCueBinMissingSplitter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEmptyPath())
	cue, _ := writeDisc(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "out")

	res, err := newCoordinator(t, cfg).Extract(context.Background(), cue, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extract.Kind(res.Err) != services.CodeToolNotFound {
		t.Fatalf("expected TOOL_NOT_FOUND, got %v", res.Err)
	}
	msg := res.Err.Error()
	for _, fragment := range []string{"tried:", "system-search-path", "https://github.com/extramaster/bchunk"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
	assertMissing(t, dest)
}

func TestExtractCueBinSplitterFailure(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": `if [ $# -eq 0 ]; then
  echo "Usage: bchunk" >&2
  exit 1
fi
echo "Error: unrecognized track mode" >&2
exit 2`}))
	cue, _ := writeDisc(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), cue, dest)
	if extract.Kind(res.Err) != services.CodeConversionFailed {
		t.Fatalf("expected CONVERSION_FAILED, got %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "unrecognized track mode") {
		t.Fatalf("expected stderr in %q", res.Err.Error())
	}
	assertMissing(t, dest)
	assertWorkDirClean(t, cfg)
}

func TestExtractCueBinSheetErrors(t *testing.T) {
	requireShell(t)
	tests := []struct {
		name  string
		sheet string
		code  string
	}{
		{
			name:  "audio only",
			sheet: "FILE \"game.bin\" BINARY\n  TRACK 01 AUDIO\n    INDEX 01 00:00:00\n",
			code:  string(services.CodeNoDataTrack),
		},
		{
			name:  "missing bin",
			sheet: "FILE \"absent.bin\" BINARY\n  TRACK 01 MODE1/2352\n    INDEX 01 00:00:00\n",
			code:  string(services.CodeCorruptContainer),
		},
		{
			name:  "escaping bin",
			sheet: "FILE \"../game.bin\" BINARY\n  TRACK 01 MODE1/2352\n    INDEX 01 00:00:00\n",
			code:  string(services.CodeCorruptContainer),
		},
		{
			name:  "track without index",
			sheet: "FILE \"game.bin\" BINARY\n  TRACK 01 MODE1/2352\n",
			code:  string(services.CodeCorruptContainer),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithStubbedScripts(map[string]string{"bchunk": splitStub}))
			dir := t.TempDir()
			testsupport.WriteBytes(t, filepath.Join(dir, "game.bin"), []byte("not used"))
			cue := testsupport.WriteBytes(t, filepath.Join(dir, "game.cue"), []byte(tt.sheet))

			res, _ := newCoordinator(t, cfg).Extract(context.Background(), cue, filepath.Join(t.TempDir(), "out"))
			if string(extract.Kind(res.Err)) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, res.Err)
			}
		})
	}
}

func TestCueBinWithInjectedSplitter(t *testing.T) {
	requireShell(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("bchunk"))
	cue, bin := writeDisc(t, t.TempDir())
	image, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}

	var gotArgs []string
	runner := services.RunnerFunc(func(ctx context.Context, binary string, args ...string) (services.CommandResult, error) {
		gotArgs = args
		return services.CommandResult{}, os.WriteFile(args[3]+"01.iso", image, 0o644)
	})
	tools := deps.NewTools(cfg, deps.WithExecutableDir(""), deps.WithoutWellKnownLocations())
	handler := extract.NewCueBinHandler(cfg, tools, nil, extract.WithSplitterExecutor(runner))

	assetPath, ok, err := handler.FindAssetPath(context.Background(), cue)
	if err != nil || !ok || assetPath != "ROLLER/FATDATA" {
		t.Fatalf("FindAssetPath = %q %v %v", assetPath, ok, err)
	}
	if len(gotArgs) != 4 || gotArgs[0] != "-w" || gotArgs[1] != bin || gotArgs[2] != cue {
		t.Fatalf("unexpected bchunk args %v", gotArgs)
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(gotArgs[3])), "roller-cuebin-") {
		t.Fatalf("expected work dir basename, got %q", gotArgs[3])
	}

	res := handler.ExtractAssetDirectory(context.Background(), cue, assetPath, filepath.Join(t.TempDir(), "out"), extract.Options{})
	if !res.Success || res.FilesExtracted != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	assertWorkDirClean(t, cfg)
}
