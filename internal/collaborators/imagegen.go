package collaborators

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/refurbd/renovation-planner/internal/pipeline"
	"github.com/refurbd/renovation-planner/pkg/artifacts"
)

// PlaceholderImageGenerator writes a flat-color PNG into the artifact
// store in place of a real synthesis backend. The artifact key doubles
// as the stored image path.
type PlaceholderImageGenerator struct {
	artifacts artifacts.Store
}

func NewPlaceholderImageGenerator(store artifacts.Store) *PlaceholderImageGenerator {
	return &PlaceholderImageGenerator{artifacts: store}
}

func (g *PlaceholderImageGenerator) Generate(ctx context.Context, req pipeline.GenerateRequest) (string, time.Duration, error) {
	return g.write(ctx, req.ArtifactKey, req.ImageSize)
}

func (g *PlaceholderImageGenerator) Edit(ctx context.Context, req pipeline.EditRequest) (string, time.Duration, error) {
	return g.write(ctx, req.ArtifactKey, req.ImageSize)
}

func (g *PlaceholderImageGenerator) write(ctx context.Context, key, size string) (string, time.Duration, error) {
	start := time.Now()

	width, height, err := parseSize(size)
	if err != nil {
		return "", 0, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 0xe8, G: 0xe2, B: 0xd8, A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", 0, err
	}

	if err := g.artifacts.Put(ctx, key, &buf, int64(buf.Len()), "image/png"); err != nil {
		return "", 0, err
	}

	return key, time.Since(start), nil
}

func parseSize(size string) (int, int, error) {
	var width, height int
	if _, err := fmt.Sscanf(size, "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("invalid image size %q: %w", size, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid image size %q", size)
	}
	return width, height, nil
}
