package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gtosh4/mindwand/session"
	"github.com/gtosh4/mindwand/store"
	"github.com/gtosh4/mindwand/trials"
)

func parseBlocks(s string) ([]trials.Block, error) {
	blocks, err := trials.ParseBlocks(s)
	if err == nil && len(blocks) == 0 {
		err = fmt.Errorf("no blocks in %q", s)
	}
	return blocks, err
}

func writeRecorder(path string, g *trials.Generator, blocks []trials.Block) (int, error) {
	rows, err := trials.Record(g, blocks)
	if err != nil {
		return 0, err
	}
	return len(rows) / trials.TrialSize, writeRows(path, rows)
}

func writeRows(path string, rows []trials.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := trials.WriteRows(f, rows); err != nil {
		return err
	}
	return f.Sync()
}

// exportSession rewrites what a stored session showed as a recorder file,
// so the same trials can be replayed for another participant. With
// resultsOut set, the stored results are exported as a results CSV too.
func exportSession(dbPath, sessionID, trialsDir, resultsOut string) error {
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	subject, err := db.Subject(sessionID)
	if err != nil {
		return err
	}
	rows, err := db.TrialRows(sessionID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("session %s has no trials", sessionID)
	}
	out := filepath.Join(trialsDir, subject.Target+"_recorder.csv")
	if err := writeRows(out, rows); err != nil {
		return err
	}
	fmt.Printf("Wrote %d trials from session %s (%s) to %s\n", len(rows)/trials.TrialSize, sessionID, subject.ID, out)

	if resultsOut == "" {
		return nil
	}
	results, err := db.Results(sessionID)
	if err != nil {
		return err
	}
	f, err := os.Create(resultsOut)
	if err != nil {
		return err
	}
	defer f.Close()
	log, err := session.NewResultsLog(f)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := log.WriteResult(r, trials.Trial{}); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %d results to %s\n", len(results), resultsOut)
	return nil
}

func main() {
	imagesDir := flag.String("images", "images_exp2", "Directory of categorised stimulus images")
	trialsDir := flag.String("trials", "trials_exp2", "Output directory")
	target := flag.String("target", "Cats", "Target category; a preset unless -similar is given")
	similar := flag.String("similar", "", "Similar category (custom policy)")
	remove := flag.String("remove", "", "Category excluded from distractors (custom policy)")
	blocksStr := flag.String("blocks", "8,4,48;8,4,48;8,4,48;8,4,48;8,4,48", "Blocks as targets,similars,randoms;...")
	practiceStr := flag.String("practice", "", "Practice block(s), written to <target>_practice.csv")
	seed := flag.Uint64("seed", 0, "Random seed (0 = time)")
	maxAttempts := flag.Int("max-attempts", trials.DefaultMaxAttempts, "Rejection-sampling attempts per slot")
	dbPath := flag.String("db", "", "sqlite session store (with -from-session)")
	fromSession := flag.String("from-session", "", "Rewrite the trials of a stored session instead of generating")
	resultsOut := flag.String("results-out", "", "Also export the stored session's results to this CSV (with -from-session)")

	flag.Parse()

	if *fromSession != "" {
		if *dbPath == "" {
			fmt.Println("Error: -from-session needs -db")
			os.Exit(1)
		}
		if err := exportSession(*dbPath, *fromSession, *trialsDir, *resultsOut); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	blocks, err := parseBlocks(*blocksStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	catalog, err := trials.LoadDir(*imagesDir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d images in %s\n", catalog.Len(), *imagesDir)

	policy := trials.Policy{Target: *target, Similar: *similar, Remove: *remove}
	if *similar == "" {
		p, ok := trials.Preset(*target)
		if !ok {
			fmt.Printf("Error: no preset for target %s (presets: %s); use -similar with one of: %s\n",
				*target, strings.Join(trials.PresetNames(), ", "), strings.Join(catalog.Level0Labels(), ", "))
			os.Exit(1)
		}
		policy = p
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	fmt.Printf("Seed: %d\n", *seed)
	g := trials.NewGenerator(catalog, policy, rand.New(rand.NewPCG(*seed, *seed>>1|1)))
	g.MaxAttempts = *maxAttempts

	out := filepath.Join(*trialsDir, policy.Target+"_recorder.csv")
	n, err := writeRecorder(out, g, blocks)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d trials to %s\n", n, out)

	if *practiceStr != "" {
		practice, err := parseBlocks(*practiceStr)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		out := filepath.Join(*trialsDir, policy.Target+"_practice.csv")
		n, err := writeRecorder(out, g, practice)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d practice trials to %s\n", n, out)
	}
}
