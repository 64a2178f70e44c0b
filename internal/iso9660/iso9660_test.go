package iso9660_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"roller/internal/iso9660"
	"roller/internal/testsupport"
)

func openImage(t *testing.T, b *testsupport.ISOBuilder, opts iso9660.Options) *iso9660.Image {
	t.Helper()
	data, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	img, err := iso9660.Open(bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return img
}

func readAll(t *testing.T, img *iso9660.Image, e iso9660.Entry) []byte {
	t.Helper()
	r, err := img.Open(e)
	if err != nil {
		t.Fatalf("Open(%s): %v", e.Path, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", e.Path, err)
	}
	return data
}

func collect(t *testing.T, img *iso9660.Image, start iso9660.Entry) map[string]iso9660.Entry {
	t.Helper()
	out := map[string]iso9660.Entry{}
	err := img.Walk(context.Background(), start, func(e iso9660.Entry) error {
		out[e.Path] = e
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return out
}

func TestPlainNamesAreCleanedAndLowercased(t *testing.T) {
	b := testsupport.NewISOBuilder().
		AddFile("FATDATA/CARS.BM", []byte("cars")).
		AddFile("FATDATA/README", []byte("readme"))
	img := openImage(t, b, iso9660.Options{LowercasePlain: true})

	if img.NameSource() != iso9660.NamesPlain {
		t.Fatalf("unexpected name source %q", img.NameSource())
	}
	entries := collect(t, img, img.Root())
	for _, want := range []string{"fatdata", "fatdata/cars.bm", "fatdata/readme"} {
		if _, ok := entries[want]; !ok {
			t.Fatalf("missing %q in %v", want, keys(entries))
		}
	}
	if got := readAll(t, img, entries["fatdata/readme"]); string(got) != "readme" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestJolietNamesPreferredOverPlain(t *testing.T) {
	b := testsupport.NewISOBuilder().WithJoliet().
		AddFile("FatData/LongTextureName.bmp", []byte("texture"))
	img := openImage(t, b, iso9660.Options{LowercasePlain: true})

	if img.NameSource() != iso9660.NamesJoliet {
		t.Fatalf("unexpected name source %q", img.NameSource())
	}
	entries := collect(t, img, img.Root())
	e, ok := entries["FatData/LongTextureName.bmp"]
	if !ok {
		t.Fatalf("expected Joliet name, got %v", keys(entries))
	}
	if got := readAll(t, img, e); string(got) != "texture" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestRockRidgeNames(t *testing.T) {
	for _, continuation := range []bool{false, true} {
		b := testsupport.NewISOBuilder().WithRockRidge(continuation).
			AddFile("FatData/engine_sounds.raw", []byte("vroom"))
		img := openImage(t, b, iso9660.Options{LowercasePlain: true})
		if img.NameSource() != iso9660.NamesRockRidge {
			t.Fatalf("continuation=%v: unexpected name source %q", continuation, img.NameSource())
		}
		entries := collect(t, img, img.Root())
		if _, ok := entries["FatData/engine_sounds.raw"]; !ok {
			t.Fatalf("continuation=%v: expected Rock Ridge name, got %v", continuation, keys(entries))
		}
	}
}

func TestRockRidgeRelocatedDirectory(t *testing.T) {
	b := testsupport.NewISOBuilder().WithRockRidge(false).
		AddFile("Game/Deep/FatData/cars.bm", []byte("cars")).
		RelocateDir("Game/Deep")
	img := openImage(t, b, iso9660.Options{LowercasePlain: true})

	entries := collect(t, img, img.Root())
	file, ok := entries["Game/Deep/FatData/cars.bm"]
	if !ok {
		t.Fatalf("expected relocated tree at its logical place, got %v", keys(entries))
	}
	for name := range entries {
		if strings.HasPrefix(name, "rr_moved/") {
			t.Fatalf("relocated directory also listed under rr_moved: %v", keys(entries))
		}
	}
	r, err := img.Open(file)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil || string(data) != "cars" {
		t.Fatalf("unexpected contents %q (err=%v)", data, err)
	}

	dir, ok, err := img.FindDir(context.Background(), "FATDATA")
	if err != nil || !ok || dir.Path != "Game/Deep/FatData" {
		t.Fatalf("FindDir: path=%q ok=%v err=%v", dir.Path, ok, err)
	}
}

func TestPreferRockRidgeOverJoliet(t *testing.T) {
	b := testsupport.NewISOBuilder().WithJoliet().WithRockRidge(false).
		AddFile("FatData/Track.dat", []byte("x"))

	img := openImage(t, b, iso9660.Options{})
	if img.NameSource() != iso9660.NamesJoliet {
		t.Fatalf("expected Joliet by default, got %q", img.NameSource())
	}
	img = openImage(t, b, iso9660.Options{PreferRockRidge: true})
	if img.NameSource() != iso9660.NamesRockRidge {
		t.Fatalf("expected Rock Ridge when preferred, got %q", img.NameSource())
	}
	if _, ok := collect(t, img, img.Root())["FatData/Track.dat"]; !ok {
		t.Fatal("expected Rock Ridge name")
	}
}

func TestFindDirBreadthFirstCaseInsensitive(t *testing.T) {
	b := testsupport.NewISOBuilder().WithJoliet().
		AddFile("Deep/Nested/FATDATA/wrong.bin", []byte("deep")).
		AddFile("Game/fatdata/right.bin", []byte("shallow"))
	img := openImage(t, b, iso9660.Options{})

	dir, ok, err := img.FindDir(context.Background(), "FATDATA")
	if err != nil || !ok {
		t.Fatalf("FindDir: ok=%v err=%v", ok, err)
	}
	if dir.Path != "Game/fatdata" {
		t.Fatalf("expected shallowest match, got %q", dir.Path)
	}

	_, ok, err = img.FindDir(context.Background(), "MISSING")
	if err != nil || ok {
		t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestMultiExtentFile(t *testing.T) {
	payload := testsupport.Pattern("multi-extent", 3*iso9660.LogicalBlockSize+777)
	b := testsupport.NewISOBuilder().WithJoliet().
		AddSplitFile("FATDATA/BIG.DAT", payload, 3).
		AddFile("FATDATA/AFTER.DAT", []byte("after"))
	img := openImage(t, b, iso9660.Options{})

	entries := collect(t, img, img.Root())
	big, ok := entries["FATDATA/BIG.DAT"]
	if !ok {
		t.Fatalf("missing multi-extent file, got %v", keys(entries))
	}
	if big.Size != int64(len(payload)) {
		t.Fatalf("expected merged size %d, got %d", len(payload), big.Size)
	}
	if got := readAll(t, img, big); !bytes.Equal(got, payload) {
		t.Fatal("multi-extent contents differ")
	}
	if got := readAll(t, img, entries["FATDATA/AFTER.DAT"]); string(got) != "after" {
		t.Fatalf("record after multi-extent file misread: %q", got)
	}
}

func TestRawSectorSizes(t *testing.T) {
	for _, size := range []int{2336, 2352} {
		payload := testsupport.Pattern("raw", 5000)
		b := testsupport.NewISOBuilder().WithJoliet().WithSectorSize(size).
			AddFile("FATDATA/RAW.BIN", payload)
		data, err := b.Build()
		if err != nil {
			t.Fatalf("build %d: %v", size, err)
		}
		if iso9660.IsImage(bytes.NewReader(data), int64(len(data)), iso9660.LogicalBlockSize) {
			t.Fatalf("sector size %d image must not validate as 2048", size)
		}
		if !iso9660.IsImage(bytes.NewReader(data), int64(len(data)), size) {
			t.Fatalf("sector size %d image not recognised", size)
		}
		img, err := iso9660.Open(bytes.NewReader(data), int64(len(data)), iso9660.Options{SectorSize: size})
		if err != nil {
			t.Fatalf("Open %d: %v", size, err)
		}
		entries := collect(t, img, img.Root())
		if got := readAll(t, img, entries["FATDATA/RAW.BIN"]); !bytes.Equal(got, payload) {
			t.Fatalf("sector size %d: contents differ", size)
		}
	}
}

func TestWalkStopsOnDirectoryCycle(t *testing.T) {
	b := testsupport.NewISOBuilder().
		AddFile("FATDATA/A.BIN", []byte("a")).
		AddCycle("FATDATA", "LOOP")
	img := openImage(t, b, iso9660.Options{LowercasePlain: true})

	visits := 0
	err := img.Walk(context.Background(), img.Root(), func(e iso9660.Entry) error {
		visits++
		if visits > 100 {
			t.Fatal("walk did not terminate")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
}

func TestWalkHonoursCancellation(t *testing.T) {
	b := testsupport.NewISOBuilder().AddFile("FATDATA/A.BIN", []byte("a"))
	img := openImage(t, b, iso9660.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := img.Walk(ctx, img.Root(), func(iso9660.Entry) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCorruptImages(t *testing.T) {
	good, err := testsupport.NewISOBuilder().AddFile("FATDATA/A.BIN", []byte("a")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	t.Run("no descriptor", func(t *testing.T) {
		blank := make([]byte, 20*iso9660.LogicalBlockSize)
		if _, err := iso9660.Open(bytes.NewReader(blank), int64(len(blank)), iso9660.Options{}); !errors.Is(err, iso9660.ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("truncated directory", func(t *testing.T) {
		// Keep the descriptors but cut the image before the root directory.
		cut := good[:17*iso9660.LogicalBlockSize+100]
		img, err := iso9660.Open(bytes.NewReader(cut), int64(len(cut)), iso9660.Options{})
		if err == nil {
			_, _, err = img.FindDir(context.Background(), "FATDATA")
		}
		if !errors.Is(err, iso9660.ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("bad record length", func(t *testing.T) {
		broken := bytes.Clone(good)
		// The root directory follows the descriptors (16 PVD, 17 terminator).
		rootOffset := 18 * iso9660.LogicalBlockSize
		// Third record (first child) gets a length shorter than the fixed header.
		second := rootOffset + int(broken[rootOffset])
		third := second + int(broken[second])
		broken[third] = 20
		img, err := iso9660.Open(bytes.NewReader(broken), int64(len(broken)), iso9660.Options{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, _, err := img.FindDir(context.Background(), "FATDATA"); !errors.Is(err, iso9660.ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt, got %v", err)
		}
	})
}

func keys(m map[string]iso9660.Entry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLookup(t *testing.T) {
	b := testsupport.NewISOBuilder().WithJoliet().
		AddFile("Game/FatData/cars.bm", []byte("cars"))
	img := openImage(t, b, iso9660.Options{})

	e, ok, err := img.Lookup("game/FATDATA")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if !e.Dir || e.Path != "Game/FatData" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if _, ok, _ := img.Lookup("Game/FatData/cars.bm/deeper"); ok {
		t.Fatal("expected no match below a file")
	}
	if root, ok, _ := img.Lookup(""); !ok || !root.Dir {
		t.Fatal("expected root for empty path")
	}
}
