package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-flex/engine"
	"github.com/Carmen-Shannon/oxy-flex/engine/config"
	"github.com/Carmen-Shannon/oxy-flex/engine/export"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a YAML config file")
	backend := flag.String("backend", "", "Graphics backend: wgpu or software (default: wgpu)")
	frames := flag.Int("frames", 0, "Frames to render headless; 0 renders until interrupted")
	outputDir := flag.String("output", "", "Directory for headless frame_%04d.webp output")
	exportGLTF := flag.String("export-gltf", "", "Write the pose at -time as binary glTF to this path and exit")
	exportTime := flag.Float64("time", 0, "Animation time in seconds for -export-gltf")
	workers := flag.Int("workers", 0, "Skinning worker goroutines (default: NumCPU)")
	profile := flag.Bool("profile", false, "Log frame rate and memory statistics")
	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	// CLI flags override config file, but only when given
	var flags config.Flags
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			flags.Backend = backend
		case "frames":
			flags.Frames = frames
		case "output":
			flags.OutputDir = outputDir
		case "export-gltf":
			flags.ExportGLTF = exportGLTF
		case "time":
			flags.Time = exportTime
		case "workers":
			flags.Workers = workers
		case "profile":
			flags.Profile = profile
		}
	})
	cfg.Resolve(flags)

	if cfg.Export.GLTF != "" {
		// export only needs the mesh and pose, so it runs on the software backend without drawing
		cfg.Backend = config.BackendSoftware
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Error creating engine: %v", err)
	}
	defer eng.Close()

	if cfg.Export.GLTF != "" {
		if err := export.SaveGLB(cfg.Export.GLTF, eng.Mesh(), eng.Pose(), cfg.Export.Time); err != nil {
			log.Fatalf("Error exporting pose: %v", err)
		}
		log.Printf("wrote pose at t=%.3fs to %s", cfg.Export.Time, cfg.Export.GLTF)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("rendering %s backend at %dx%d", cfg.Backend, cfg.Window.Width, cfg.Window.Height)
	if err := eng.Run(ctx); err != nil {
		eng.Close()
		log.Fatalf("Render loop stopped: %v", err)
	}
	log.Printf("rendered %d frames", eng.Frames())
}
