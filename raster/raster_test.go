package raster_test

import (
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilemap/raster"
	"github.com/eak1mov/go-tilemap/tile"
	"github.com/google/go-cmp/cmp"
)

func TestUniformColor(t *testing.T) {
	t.Parallel()

	red := tile.RGBA(0xFF, 0x00, 0x00, 0xFF)
	nearRed := tile.RGBA(0xFD, 0x02, 0x00, 0xFF)

	t.Run("solid region", func(t *testing.T) {
		t.Parallel()

		img := raster.New(16, 16)
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, red)
			}
		}

		got, ok := img.UniformColor(0, 0, 16, 16, 0)
		if !ok {
			t.Fatal("UniformColor = false, want true")
		}
		if got != red {
			t.Errorf("UniformColor = %08X, want = %08X", uint32(got), uint32(red))
		}
	})

	t.Run("single outlier", func(t *testing.T) {
		t.Parallel()

		img := raster.New(16, 16)
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, red)
			}
		}
		img.Set(15, 15, tile.RGBA(0xFF, 0x00, 0x01, 0xFF))

		if _, ok := img.UniformColor(0, 0, 16, 16, 0); ok {
			t.Error("UniformColor = true, want false")
		}
	})

	t.Run("sub region", func(t *testing.T) {
		t.Parallel()

		img := raster.New(8, 8)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if x < 4 {
					img.Set(x, y, red)
				} else {
					img.Set(x, y, tile.RGBA(0, 0, 0xFF, 0xFF))
				}
			}
		}

		if _, ok := img.UniformColor(0, 0, 8, 8, 0); ok {
			t.Error("UniformColor over mixed region = true, want false")
		}
		got, ok := img.UniformColor(0, 0, 4, 8, 0)
		if !ok || got != red {
			t.Errorf("UniformColor over left half = (%08X, %v), want = (%08X, true)", uint32(got), ok, uint32(red))
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		t.Parallel()

		img := raster.New(4, 4)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.Set(x, y, nearRed)
			}
		}
		img.Set(0, 0, red) // reference pixel

		if _, ok := img.UniformColor(0, 0, 4, 4, 0); ok {
			t.Error("UniformColor(tolerance=0) = true, want false")
		}
		got, ok := img.UniformColor(0, 0, 4, 4, 2)
		if !ok {
			t.Fatal("UniformColor(tolerance=2) = false, want true")
		}
		if got != red {
			t.Errorf("reference color = %08X, want = %08X", uint32(got), uint32(red))
		}
	})
}

func TestBlitOpaque(t *testing.T) {
	t.Parallel()

	dst := raster.New(4, 4)
	src := raster.New(2, 2)
	green := tile.RGBA(0x00, 0xFF, 0x00, 0xFF)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, green)
		}
	}

	dst.Blit(src.Pix, 2, 2, 1, 1)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := tile.Color(0)
			if x >= 1 && x < 3 && y >= 1 && y < 3 {
				want = green
			}
			if got := dst.At(x, y); got != want {
				t.Errorf("At(%d, %d) = %08X, want = %08X", x, y, uint32(got), uint32(want))
			}
		}
	}
}

func TestBlitAlpha(t *testing.T) {
	t.Parallel()

	dst := raster.New(1, 1)
	dst.Set(0, 0, tile.RGBA(0x00, 0x00, 0xFF, 0xFF))

	// 50% red over opaque blue, truncating float math
	dst.BlitColor(tile.RGBA(0xFF, 0x00, 0x00, 0x80), 1, 1, 0, 0)

	alpha := float64(0x80) / 255
	wantR := byte(0xFF * alpha)
	wantB := byte(0xFF * (1 - alpha))
	wantA := byte(0x80 + 0xFF*(1-alpha))

	got := dst.At(0, 0)
	if got.R() != wantR || got.G() != 0 || got.B() != wantB || got.A() != wantA {
		t.Errorf("composited pixel = %08X, want = %08X", uint32(got), uint32(tile.RGBA(wantR, 0, wantB, wantA)))
	}
}

func TestBlitClipping(t *testing.T) {
	t.Parallel()

	dst := raster.New(4, 4)
	white := tile.RGBA(0xFF, 0xFF, 0xFF, 0xFF)

	// straddles the top-left corner: only the bottom-right quarter lands
	dst.BlitColor(white, 4, 4, -2, -2)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := tile.Color(0)
			if x < 2 && y < 2 {
				want = white
			}
			if got := dst.At(x, y); got != want {
				t.Errorf("At(%d, %d) = %08X, want = %08X", x, y, uint32(got), uint32(want))
			}
		}
	}
}

func TestPNGRoundTrip(t *testing.T) {
	t.Parallel()

	img := raster.New(5, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			img.Set(x, y, tile.RGBA(byte(x*40), byte(y*80), 0x33, 0xFF))
		}
	}

	path := filepath.Join(t.TempDir(), "tile.png")
	if err := img.Encode(path); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := raster.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got, want := decoded, img; !cmp.Equal(got, want) {
		t.Errorf("decoded image mismatch:\n%s", cmp.Diff(want, got))
	}
}

func TestDecodeMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := raster.Decode(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Decode(missing) = nil error, want error")
	}
}
