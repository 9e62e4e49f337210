package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/session"
	"github.com/gtosh4/mindwand/store"
	"github.com/gtosh4/mindwand/trials"
)

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func readTrialsFile(path string, catalog *trials.Catalog) ([]trials.Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := trials.ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trials.Replay(rows, catalog)
}

// LoadTrials returns the practice trials in recorded order and the
// experimental blocks. Replayed blocks are shuffled within each block;
// otherwise blocks are generated fresh.
func LoadTrials(cfg *Config, catalog *trials.Catalog, policy trials.Policy, rng *rand.Rand) ([]trials.Trial, [][]trials.Trial, error) {
	var practice []trials.Trial
	if cfg.PracticeFile != "" {
		var err error
		practice, err = readTrialsFile(cfg.PracticeFile, catalog)
		if err != nil {
			return nil, nil, fmt.Errorf("practice trials: %w", err)
		}
	}

	if !cfg.Replay {
		blocks, err := trials.NewGenerator(catalog, policy, rng).GenerateBlocks(cfg.Blocks)
		return practice, blocks, err
	}

	recorded, err := readTrialsFile(cfg.TrialsFile(), catalog)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := trials.SplitBlocks(recorded, cfg.Blocks)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range blocks {
		trials.Shuffle(b, rng)
	}
	return practice, blocks, nil
}

// openSinks creates the results CSV and, if configured, the sqlite session.
func openSinks(cfg *Config) (session.Sink, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, err
	}
	timestamp := time.Now().Format("20060102-150405")
	outputName := filepath.Join(cfg.DataDir, fmt.Sprintf("%s_mindwand_%s.csv", cfg.SubjectID, timestamp))
	f, err := os.Create(outputName)
	if err != nil {
		return nil, nil, err
	}
	log, err := session.NewResultsLog(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	fmt.Printf("Writing results to %s\n", outputName)

	closers := []func(){func() { f.Close() }}
	sink := session.MultiSink{log}

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		s, err := db.StartSession(session.Subject{ID: cfg.SubjectID, Target: cfg.Target})
		if err != nil {
			db.Close()
			f.Close()
			return nil, nil, err
		}
		fmt.Printf("Session %s stored in %s\n", s.ID, cfg.DBPath)
		sink = append(sink, s)
	}

	return sink, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// resolvePolicy needs a preset only when trials are generated. A replayed
// recording already fixes every image, so any target name is accepted.
func resolvePolicy(cfg *Config) (trials.Policy, error) {
	if cfg.Replay {
		if p, ok := trials.Preset(cfg.Target); ok {
			return p, nil
		}
		return trials.Policy{Target: cfg.Target}, nil
	}
	p, ok := trials.Preset(cfg.Target)
	if !ok {
		return trials.Policy{}, fmt.Errorf("unknown target category: %s (presets: %s)", cfg.Target, strings.Join(trials.PresetNames(), ", "))
	}
	return p, nil
}

func Run(cfg *Config) error {
	if cfg.SubjectID == "" {
		return errors.New("subject ID is required")
	}
	policy, err := resolvePolicy(cfg)
	if err != nil {
		return err
	}

	catalog, err := trials.LoadDir(cfg.ImagesDir)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	fmt.Printf("Found %d images in %s\n", catalog.Len(), cfg.ImagesDir)

	rng := newRand(cfg.Seed)
	practice, blocks, err := LoadTrials(cfg, catalog, policy, rng)
	if err != nil {
		return err
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("SDL_Init: %w", err)
	}
	defer sdl.Quit()

	if err := ttf.Init(); err != nil {
		return fmt.Errorf("TTF_Init: %w", err)
	}
	defer ttf.Quit()

	windowFlags := sdl.WINDOW_RESIZABLE
	if cfg.Fullscreen {
		windowFlags |= sdl.WINDOW_FULLSCREEN
	}

	window, renderer, err := sdl.CreateWindowAndRenderer("mindwand", cfg.ScreenWidth, cfg.ScreenHeight, windowFlags)
	if err != nil {
		return fmt.Errorf("CreateWindowAndRenderer: %w", err)
	}
	defer window.Destroy()
	defer renderer.Destroy()

	if cfg.VSync {
		renderer.SetVSync(1)
	} else {
		renderer.SetVSync(0)
	}

	fontPath := cfg.FontFile
	if fontPath == "" {
		fontPath = GetDefaultFontPath()
	}
	var font *ttf.Font
	if fontPath != "" {
		font, err = ttf.OpenFont(fontPath, float32(cfg.FontSize))
		if err != nil {
			fmt.Printf("Failed to load font: %s (%v)\n", fontPath, err)
		}
	}
	defer func() {
		if font != nil {
			font.Close()
		}
	}()

	cache := NewTextureCache()
	defer cache.Destroy()

	presenter := NewSDLPresenter(cfg, renderer, font, cache, rng)
	presenter.clear()
	renderCentered(renderer, font, "Loading Trials...", cfg.ScreenWidth, float32(cfg.ScreenHeight)/2, cfg.TextColor)
	renderer.Present()
	cache.Preload(renderer, practice)
	for _, b := range blocks {
		cache.Preload(renderer, b)
	}

	var tracker session.EyeTracker = session.NopTracker{}
	if cfg.DLPDevice != "" {
		dlp, err := NewDLPIO8G(cfg.DLPDevice, 9600)
		if err != nil {
			fmt.Printf("Failed to initialize DLP device: %v\n", err)
		} else {
			defer dlp.Close()
			tracker = NewTriggerTracker(dlp)
		}
	}

	sink, closeSinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	runner := &session.Runner{
		Subject:   session.Subject{ID: cfg.SubjectID, Target: cfg.Target},
		Presenter: presenter,
		Tracker:   tracker,
		Sink:      sink,
		Probe:     probe.NewScheduler(probe.NewClock(), presenter, rng),
		Clock:     probe.NewClock(),
		Rand:      rng,
		Questions: session.DefaultQuestions(),
	}
	if err := runner.Run(practice, blocks); err != nil {
		if session.IsQuit(err) {
			fmt.Println("\nSession aborted by participant")
		}
		return err
	}

	presenter.ShowMessage("Thank you! The experiment is complete.")
	fmt.Println("\nSession complete")
	return nil
}
