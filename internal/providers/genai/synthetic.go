package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// RenderSynthetic draws a deterministic striped PNG for prompt. The same
// inputs always yield the same bytes, which keeps keyless runs reproducible.
func RenderSynthetic(prompt, aspect string, salt ...any) ImageAsset {
	seed := DeterministicSeed(append([]any{prompt, aspect}, salt...)...)
	width, height := AspectSize(aspect)
	return ImageAsset{
		Format: "image/png",
		Width:  width,
		Height: height,
		Data:   renderStripes(width, height, seed),
	}
}

// DeterministicSeed hashes parts into a short hex seed.
func DeterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(hasher, "%v|", p)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// AspectSize maps a "w:h" ratio to pixel dimensions. The long edge of
// landscape ratios is 1024; unknown input yields a square.
func AspectSize(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return 1024, 576
	case "21:9":
		return 1024, 439
	case "9:16":
		return 576, 1024
	case "3:4":
		return 768, 1024
	case "4:3":
		return 1024, 768
	case "1:1", "square", "":
		return 1024, 1024
	}
	parts := strings.Split(aspect, ":")
	if len(parts) == 2 {
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA == nil && errB == nil && a > 0 && b > 0 {
			if a >= b {
				return 1024, 1024 * b / a
			}
			return 1024 * a / b, 1024
		}
	}
	return 1024, 1024
}

func renderStripes(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{seedColor(seed, 0)}, image.Point{}, draw.Src)

	band := max(24, height/10)
	accent := seedColor(seed, 1)
	for y := 0; y < height; y += band * 2 {
		draw.Draw(img, image.Rect(0, y, width, min(height, y+band)), &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	line := seedColor(seed, 2)
	step := max(16, width/24)
	for x0 := 0; x0 < width; x0 += step {
		for y := 0; y < height && x0+y < width; y++ {
			img.Set(x0+y, y, line)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func seedColor(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "a0a0a0"
	}
	doubled := seed + seed
	start := (shift * 5) % len(seed)
	seg := doubled[start : start+6]
	return color.RGBA{R: hexByte(seg[0:2]), G: hexByte(seg[2:4]), B: hexByte(seg[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}
