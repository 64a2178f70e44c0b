package extract_test

import (
	"context"
	"path/filepath"
	"testing"

	"roller/internal/extract"
	"roller/internal/services"
	"roller/internal/testsupport"
)

func TestExtractISOPrefersJolietNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	long := testsupport.Pattern("long", 5000)
	source := testsupport.NewISOBuilder().
		WithJoliet().
		AddFile("Game/FatData/Long File Name.dat", long).
		AddFile("Game/FatData/Cars/Car One.bm", []byte("car")).
		Write(t, t.TempDir(), "game.iso")
	dest := filepath.Join(t.TempDir(), "out")

	res, err := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Success || res.Format != "iso9660" {
		t.Fatalf("expected iso success, got %+v", res)
	}
	assertTree(t, res.AssetPath, map[string][]byte{
		"Long File Name.dat": long,
		"Cars/Car One.bm":    []byte("car"),
	})
}

func TestExtractISOLowercasesPlainNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := testsupport.NewISOBuilder().
		AddFile("FATDATA/CAR.BM", []byte("car")).
		AddFile("FATDATA/SOUND/ENGINE.RAW", []byte("vroom")).
		Write(t, t.TempDir(), "plain.iso")
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	assertTree(t, res.AssetPath, map[string][]byte{
		"car.bm":           []byte("car"),
		"sound/engine.raw": []byte("vroom"),
	})
}

func TestExtractISORockRidgeNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := testsupport.NewISOBuilder().
		WithRockRidge(true).
		AddFile("FatData/MixedCase.txt", []byte("rr")).
		Write(t, t.TempDir(), "rr.iso")
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	assertTree(t, res.AssetPath, map[string][]byte{"MixedCase.txt": []byte("rr")})
}

func TestExtractISOMultiExtentFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	data := testsupport.Pattern("split", 3*2048+77)
	source := testsupport.NewISOBuilder().
		AddSplitFile("FATDATA/BIG.DAT", data, 3).
		Write(t, t.TempDir(), "split.iso")
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
	if !res.Success || res.BytesExtracted != int64(len(data)) {
		t.Fatalf("unexpected result %+v", res)
	}
	assertTree(t, res.AssetPath, map[string][]byte{"big.dat": data})
}

func TestExtractISOUsesConfiguredSectorSize(t *testing.T) {
	for _, size := range []int{2336, 2352} {
		cfg := testsupport.NewConfig(t, testsupport.WithSectorSize(size))
		source := testsupport.NewISOBuilder().
			WithSectorSize(size).
			AddFile("FATDATA/DATA.BIN", []byte("raw sectors")).
			Write(t, t.TempDir(), "raw.iso")
		dest := filepath.Join(t.TempDir(), "out")

		res, _ := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
		if !res.Success {
			t.Fatalf("sector size %d: expected success, got %v", size, res.Err)
		}
		assertTree(t, res.AssetPath, map[string][]byte{"data.bin": []byte("raw sectors")})

		// The same image is not an ISO at the default sector size.
		plain := testsupport.NewConfig(t)
		res, _ = newCoordinator(t, plain).Extract(context.Background(), source, filepath.Join(t.TempDir(), "out"))
		if extract.Kind(res.Err) != services.CodeUnsupportedFormat {
			t.Fatalf("sector size %d read as 2048: expected UNSUPPORTED_FORMAT, got %v", size, res.Err)
		}
	}
}

func TestExtractISOCorruptImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	data := make([]byte, 18*2048)
	// A supplementary descriptor without a primary one.
	data[16*2048] = 2
	copy(data[16*2048+1:], "CD001")
	data[17*2048] = 255
	copy(data[17*2048+1:], "CD001")
	source := testsupport.WriteBytes(t, filepath.Join(t.TempDir(), "broken.iso"), data)
	dest := filepath.Join(t.TempDir(), "out")

	res, _ := newCoordinator(t, cfg).Extract(context.Background(), source, dest)
	if extract.Kind(res.Err) != services.CodeCorruptContainer {
		t.Fatalf("expected CORRUPT_CONTAINER, got %v", res.Err)
	}
	assertMissing(t, dest)
}

func TestLocateISO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := testsupport.NewISOBuilder().
		WithJoliet().
		AddFile("Deep/Er/FatData/x.dat", []byte("x")).
		AddFile("Other/readme.txt", []byte("r")).
		Write(t, t.TempDir(), "deep.iso")

	loc, err := newCoordinator(t, cfg).Locate(context.Background(), source)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.AssetPath != "Deep/Er/FatData" || loc.Format != "iso9660" {
		t.Fatalf("unexpected location %+v", loc)
	}
}
