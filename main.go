package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("mold: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig(flag.CommandLine)
	if err != nil {
		return err
	}
	if *summaryOnlyFlag {
		if err := cfg.Validate(mold.DefaultLimits); err != nil {
			return err
		}
		logSummary(cfg, *backendFlag)
		return nil
	}

	prof, err := startProfiling(*cpuProfileFlag, *memProfileFlag)
	if err != nil {
		return err
	}
	defer prof.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var frames uint64
	switch *backendFlag {
	case backendGL:
		frames, err = runGL(ctx, cfg)
	case backendSoft:
		frames, err = runSoft(ctx, cfg)
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", *backendFlag, backendGL, backendSoft)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	log.Printf("Rendered %d frames in %s (%.1f fps)", frames, elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds())
	return nil
}

// loadConfig reads -config when given and applies the flags explicitly set on
// set.
func loadConfig(set *flag.FlagSet) (mold.Config, error) {
	cfg := mold.DefaultConfig()
	if *configPathFlag != "" {
		var err error
		if cfg, err = mold.LoadConfig(*configPathFlag); err != nil {
			return cfg, err
		}
	}
	applyFlagOverrides(set, &cfg)
	return cfg, nil
}

func logSummary(cfg mold.Config, device string) {
	log.Printf("Device: %s", device)
	for _, line := range mold.Summarize(cfg).Lines() {
		log.Print(line)
	}
}
