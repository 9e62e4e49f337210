package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/Zyko0/go-sdl3/bin/binimg"
	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/Zyko0/go-sdl3/bin/binttf"

	"github.com/gtosh4/mindwand/engine"
	"github.com/gtosh4/mindwand/trials"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	defer binsdl.Load().Unload()
	defer binimg.Load().Unload()
	defer binttf.Load().Unload()

	cfg := engine.DefaultConfig()

	subjectID := flag.String("subject", "", "Subject ID")
	target := flag.String("target", cfg.Target, "Target category")
	imagesDir := flag.String("images", cfg.ImagesDir, "Directory of categorised stimulus images")
	trialsDir := flag.String("trials", cfg.TrialsDir, "Directory of recorded trial files")
	dataDir := flag.String("data", cfg.DataDir, "Directory for results files")
	practiceFile := flag.String("practice", "", "Recorded practice trials, run in order and not logged")
	dbPath := flag.String("db", "", "sqlite session store")
	blocks := flag.String("blocks", trials.FormatBlocks(cfg.Blocks), "Blocks as targets,similars,randoms;...")
	generate := flag.Bool("generate", false, "Generate trials instead of replaying the recorded file")
	seed := flag.Uint64("seed", 0, "Random seed (0 = time)")
	fontFile := flag.String("font", "", "TTF font file")
	fontSize := flag.Int("font-size", cfg.FontSize, "Font size")
	dlpDevice := flag.String("dlp", "", "DLP-IO8-G device")
	screenW := flag.Int("width", cfg.ScreenWidth, "Screen width")
	screenH := flag.Int("height", cfg.ScreenHeight, "Screen height")
	ppd := flag.Float64("ppd", float64(cfg.PixelsPerDegree), "Pixels per degree of visual angle")
	noiseDots := flag.Int("noise-dots", cfg.NoiseDots, "Number of noise dots drawn over the search display")
	noVSync := flag.Bool("no-vsync", false, "Disable VSync")
	fullscreen := flag.Bool("fullscreen", false, "Enable fullscreen")
	bgColorStr := flag.String("bg-color", "255,255,255,255", "Background color (R,G,B,A)")
	textColorStr := flag.String("text-color", "0,0,0,255", "Text color (R,G,B,A)")
	fixColorStr := flag.String("fixation-color", "0,0,0,255", "Fixation color (R,G,B,A)")

	flag.Parse()

	parsedBlocks, err := trials.ParseBlocks(*blocks)
	if err == nil && len(parsedBlocks) == 0 {
		err = fmt.Errorf("no blocks in %q", *blocks)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg.SubjectID = *subjectID
	cfg.Target = *target
	cfg.ImagesDir = *imagesDir
	cfg.TrialsDir = *trialsDir
	cfg.DataDir = *dataDir
	cfg.PracticeFile = *practiceFile
	cfg.DBPath = *dbPath
	cfg.Blocks = parsedBlocks
	cfg.Replay = !*generate
	cfg.Seed = *seed
	cfg.FontFile = *fontFile
	cfg.FontSize = *fontSize
	cfg.DLPDevice = *dlpDevice
	cfg.ScreenWidth = *screenW
	cfg.ScreenHeight = *screenH
	cfg.PixelsPerDegree = float32(*ppd)
	cfg.NoiseDots = *noiseDots
	cfg.VSync = !*noVSync
	cfg.Fullscreen = *fullscreen
	cfg.BGColor = engine.ParseColor(*bgColorStr)
	cfg.TextColor = engine.ParseColor(*textColorStr)
	cfg.FixationColor = engine.ParseColor(*fixColorStr)

	if cfg.SubjectID == "" {
		fmt.Println("Error: subject ID is required.")
		flag.Usage()
		os.Exit(1)
	}

	if err := engine.Run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
