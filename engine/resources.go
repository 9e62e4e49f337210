package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Zyko0/go-sdl3/img"
	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"github.com/gtosh4/mindwand/trials"
)

func GetDefaultFontPath() string {
	// Check local fonts directory
	entries, err := os.ReadDir("fonts")
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if ext == ".ttf" || ext == ".ttc" {
					return filepath.Join("fonts", entry.Name())
				}
			}
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = []string{"C:\\Windows\\Fonts\\arial.ttf"}
	case "darwin":
		paths = []string{"/System/Library/Fonts/Helvetica.ttc"}
	default:
		paths = []string{
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

type CacheEntry struct {
	Texture *sdl.Texture
	W, H    float32
}

// TextureCache holds one texture per stimulus file.
type TextureCache struct {
	entries map[string]*CacheEntry
}

func NewTextureCache() *TextureCache {
	return &TextureCache{
		entries: make(map[string]*CacheEntry),
	}
}

func (c *TextureCache) Get(renderer *sdl.Renderer, image *trials.Image) (*CacheEntry, error) {
	if entry, ok := c.entries[image.Path]; ok {
		return entry, nil
	}
	tex, err := img.LoadTexture(renderer, image.Path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", image.Path, err)
	}
	w, h, _ := tex.Size()
	entry := &CacheEntry{Texture: tex, W: w, H: h}
	c.entries[image.Path] = entry
	return entry, nil
}

// Preload loads every image used by ts. Failures are reported and the image
// is drawn as an empty slot.
func (c *TextureCache) Preload(renderer *sdl.Renderer, ts ...[]trials.Trial) {
	for _, group := range ts {
		for _, t := range group {
			for _, image := range t.Images {
				if _, err := c.Get(renderer, image); err != nil {
					fmt.Printf("Failed to load image: %v\n", err)
					c.entries[image.Path] = &CacheEntry{}
				}
			}
		}
	}
}

func (c *TextureCache) Destroy() {
	for _, entry := range c.entries {
		if entry.Texture != nil {
			entry.Texture.Destroy()
		}
	}
}

// renderText draws text with its top-left corner at x,y and returns its size.
func renderText(renderer *sdl.Renderer, font *ttf.Font, text string, x, y float32, color sdl.Color) (float32, float32) {
	if font == nil || text == "" {
		return 0, 0
	}
	surf, err := font.RenderTextBlended(text, color)
	if err != nil || surf == nil {
		return 0, 0
	}
	defer surf.Destroy()
	tex, err := renderer.CreateTextureFromSurface(surf)
	if err != nil {
		return 0, 0
	}
	defer tex.Destroy()
	r := sdl.FRect{X: x, Y: y, W: float32(surf.W), H: float32(surf.H)}
	renderer.RenderTexture(tex, nil, &r)
	return r.W, r.H
}

// textSize measures text without drawing it.
func textSize(font *ttf.Font, text string) (float32, float32) {
	if font == nil || text == "" {
		return 0, 0
	}
	surf, err := font.RenderTextBlended(text, sdl.Color{A: 255})
	if err != nil || surf == nil {
		return 0, 0
	}
	defer surf.Destroy()
	return float32(surf.W), float32(surf.H)
}

// renderCentered draws each line of text centred horizontally, with the block
// centred on cy.
func renderCentered(renderer *sdl.Renderer, font *ttf.Font, text string, screenW int, cy float32, color sdl.Color) {
	lines := strings.Split(text, "\n")
	lineH := float32(0)
	for _, line := range lines {
		if _, h := textSize(font, line); h > lineH {
			lineH = h
		}
	}
	if lineH == 0 {
		lineH = 24
	}
	y := cy - lineH*float32(len(lines))/2
	for _, line := range lines {
		w, _ := textSize(font, line)
		renderText(renderer, font, line, (float32(screenW)-w)/2, y, color)
		y += lineH
	}
}
