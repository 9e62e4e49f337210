package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zyko0/go-sdl3/sdl"

	"github.com/gtosh4/mindwand/trials"
)

type Config struct {
	SubjectID       string
	Target          string
	ImagesDir       string
	TrialsDir       string
	DataDir         string
	PracticeFile    string
	DBPath          string
	FontFile        string
	DLPDevice       string
	FontSize        int
	ScreenWidth     int
	ScreenHeight    int
	PixelsPerDegree float32
	NoiseDots       int
	Seed            uint64
	Replay          bool
	Fullscreen      bool
	VSync           bool
	Blocks          []trials.Block
	BGColor         sdl.Color
	TextColor       sdl.Color
	FixationColor   sdl.Color
}

// TrialsFile is where the recorder writes and the runner replays trials for
// the configured target.
func (cfg *Config) TrialsFile() string {
	return filepath.Join(cfg.TrialsDir, cfg.Target+"_recorder.csv")
}

// ParseColor reads "r,g,b" or "r,g,b,a"; alpha defaults to opaque.
func ParseColor(s string) sdl.Color {
	var r, g, b uint8
	a := uint8(255)
	fmt.Sscanf(s, "%d,%d,%d,%d", &r, &g, &b, &a)
	return sdl.Color{R: r, G: g, B: b, A: a}
}

const CacheFile = ".mindwand_cache"

func (cfg *Config) SaveCache() {
	f, err := os.Create(CacheFile)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "target=%s\n", cfg.Target)
	fmt.Fprintf(f, "images_dir=%s\n", cfg.ImagesDir)
	fmt.Fprintf(f, "trials_dir=%s\n", cfg.TrialsDir)
	fmt.Fprintf(f, "data_dir=%s\n", cfg.DataDir)
	fmt.Fprintf(f, "db_path=%s\n", cfg.DBPath)
	fmt.Fprintf(f, "blocks=%s\n", trials.FormatBlocks(cfg.Blocks))
	fmt.Fprintf(f, "screen_w=%d\n", cfg.ScreenWidth)
	fmt.Fprintf(f, "screen_h=%d\n", cfg.ScreenHeight)
	if cfg.Replay {
		fmt.Fprintf(f, "replay=1\n")
	} else {
		fmt.Fprintf(f, "replay=0\n")
	}
	if cfg.Fullscreen {
		fmt.Fprintf(f, "fullscreen=1\n")
	} else {
		fmt.Fprintf(f, "fullscreen=0\n")
	}
	fmt.Fprintf(f, "bg_color=%d,%d,%d\n", cfg.BGColor.R, cfg.BGColor.G, cfg.BGColor.B)
	fmt.Fprintf(f, "text_color=%d,%d,%d\n", cfg.TextColor.R, cfg.TextColor.G, cfg.TextColor.B)
	fmt.Fprintf(f, "fixation_color=%d,%d,%d\n", cfg.FixationColor.R, cfg.FixationColor.G, cfg.FixationColor.B)
}

func (cfg *Config) LoadCache() {
	data, err := os.ReadFile(CacheFile)
	if err != nil {
		return
	}
	cfg.parseCache(string(data))
}

func (cfg *Config) parseCache(data string) {
	for _, line := range strings.Split(data, "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], strings.TrimSpace(parts[1])

		switch key {
		case "target":
			cfg.Target = val
		case "images_dir":
			cfg.ImagesDir = val
		case "trials_dir":
			cfg.TrialsDir = val
		case "data_dir":
			cfg.DataDir = val
		case "db_path":
			cfg.DBPath = val
		case "blocks":
			if blocks, err := trials.ParseBlocks(val); err == nil && len(blocks) > 0 {
				cfg.Blocks = blocks
			}
		case "screen_w":
			fmt.Sscanf(val, "%d", &cfg.ScreenWidth)
		case "screen_h":
			fmt.Sscanf(val, "%d", &cfg.ScreenHeight)
		case "replay":
			cfg.Replay = (val != "0")
		case "fullscreen":
			cfg.Fullscreen = (val != "0")
		case "bg_color":
			cfg.BGColor = ParseColor(val)
		case "text_color":
			cfg.TextColor = ParseColor(val)
		case "fixation_color":
			cfg.FixationColor = ParseColor(val)
		}
	}
}

func DefaultConfig() *Config {
	return &Config{
		Target:          "Cats",
		ImagesDir:       "images_exp2",
		TrialsDir:       "trials_exp2",
		DataDir:         "data_exp2",
		FontSize:        28,
		ScreenWidth:     1920,
		ScreenHeight:    1080,
		PixelsPerDegree: 40,
		NoiseDots:       2000,
		Replay:          true,
		VSync:           true,
		Blocks:          trials.DefaultBlocks(),
		BGColor:         sdl.Color{R: 255, G: 255, B: 255, A: 255},
		TextColor:       sdl.Color{R: 0, G: 0, B: 0, A: 255},
		FixationColor:   sdl.Color{R: 0, G: 0, B: 0, A: 255},
	}
}
