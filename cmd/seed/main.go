// Command seed loads the sample release thread and generated demo threads
// into the configured store backend.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"teamsemu/internal/config"
	"teamsemu/internal/database"
	"teamsemu/internal/middleware"
	"teamsemu/internal/seed"
)

func main() {
	demo := flag.Int("demo", 10, "number of generated demo threads")
	maxReplies := flag.Int("max-replies", 4, "maximum replies per demo thread")
	randSeed := flag.Int64("seed", 1, "random seed for demo content")
	fixtures := flag.String("fixtures", "", "optional YAML fixtures file applied after the sample thread")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.StoreDriver == config.DriverMemory {
		middleware.Logger.Error("Seeding the memory store has no lasting effect; set STORE_DRIVER to sqlite or postgres")
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := database.OpenStore(ctx, cfg)
	if err != nil {
		middleware.Logger.Error("Failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	total := seed.Result{}
	apply := func(name string, fx seed.Fixtures) {
		res, err := seed.Apply(ctx, st, fx)
		total.Posts += res.Posts
		total.Replies += res.Replies
		if err != nil {
			middleware.Logger.Error("Seeding failed", slog.String("set", name), slog.String("error", err.Error()))
			_ = st.Close()
			os.Exit(1)
		}
	}

	res, err := seed.SeedIfEmpty(ctx, st)
	if err != nil {
		middleware.Logger.Error("Seeding failed", slog.String("set", "sample"), slog.String("error", err.Error()))
		os.Exit(1)
	}
	total = res

	if *fixtures != "" {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			middleware.Logger.Error("Failed to read fixtures", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fx, err := seed.Parse(data)
		if err != nil {
			middleware.Logger.Error("Failed to parse fixtures", slog.String("error", err.Error()))
			os.Exit(1)
		}
		apply(*fixtures, fx)
	}
	if *demo > 0 {
		apply("demo", seed.Demo(*demo, *maxReplies, *randSeed))
	}

	middleware.Logger.Info("Seeding complete",
		slog.Int("posts", total.Posts),
		slog.Int("replies", total.Replies))
}
