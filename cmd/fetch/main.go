package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/service"
	"github.com/timmy/fitetl/internal/source"
)

var defaultMuscles = []string{
	"abdominals", "abductors", "adductors", "biceps", "calves",
	"chest", "forearms", "glutes", "hamstrings", "lats",
	"lower_back", "middle_back", "neck", "quadriceps", "traps",
	"triceps", "shoulders",
}

var defaultFoods = []string{
	// Proteins
	"chicken breast", "chicken thigh", "ground beef", "steak", "pork chop",
	"salmon", "tuna", "tilapia", "shrimp", "cod",
	"eggs", "egg whites", "turkey breast", "ground turkey",
	"tofu", "tempeh", "protein powder", "cottage cheese",
	// Carbs
	"white rice", "brown rice", "jasmine rice", "quinoa", "oatmeal",
	"whole wheat bread", "white bread", "pasta", "sweet potato",
	"regular potato", "couscous", "bagel", "tortilla",
	// Vegetables
	"broccoli", "spinach", "kale", "carrots", "bell pepper",
	"tomato", "cucumber", "lettuce", "asparagus", "green beans",
	"cauliflower", "brussels sprouts", "zucchini", "mushrooms",
	// Fruits
	"banana", "apple", "orange", "strawberry", "blueberry",
	"mango", "pineapple", "grapes", "watermelon", "peach",
	"pear", "kiwi", "grapefruit",
	// Fats
	"avocado", "almonds", "walnuts", "peanut butter", "almond butter",
	"olive oil", "coconut oil", "chia seeds", "flax seeds",
	"cashews", "pecans", "sunflower seeds",
	// Dairy
	"greek yogurt", "milk", "cheese", "mozzarella", "cheddar cheese",
	"yogurt", "whey protein", "butter",
	// Snacks
	"granola bar", "protein bar", "rice cakes", "popcorn",
	"dark chocolate", "honey", "maple syrup",
}

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	muscles := flag.String("muscles", strings.Join(defaultMuscles, ","), "Comma separated muscle groups")
	foods := flag.String("foods", strings.Join(defaultFoods, ","), "Comma separated food queries")
	maxPerMuscle := flag.Int("max-per-muscle", 50, "Maximum exercises per muscle group")
	skipExercises := flag.Bool("skip-exercises", false, "Do not fetch exercises")
	skipNutrition := flag.Bool("skip-nutrition", false, "Do not fetch nutrition")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if cfg.API.APIKey == "" {
		appLogger.Fatal("API_NINJAS_KEY is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	client := service.NewAPINinjasClient(cfg.API, cfg.ETL, appLogger)

	if !*skipExercises {
		var all []service.Exercise
		for _, muscle := range splitList(*muscles) {
			exercises, err := client.FetchExercises(ctx, muscle, *maxPerMuscle)
			if err != nil {
				appLogger.WithError(err).WithField("muscle", muscle).Warn("Exercise fetch stopped early")
			}
			all = append(all, exercises...)
			if ctx.Err() != nil {
				break
			}
		}
		ds := service.ExercisesDataset(all)
		if err := writeDataset(cfg, ds); err != nil {
			appLogger.WithError(err).Fatal("Failed to write exercises")
		}
		appLogger.WithField(logger.FieldRows, ds.Len()).Info("Saved unique exercises")
	}

	if !*skipNutrition && ctx.Err() == nil {
		items, err := client.FetchNutrition(ctx, splitList(*foods))
		if err != nil {
			appLogger.WithError(err).Warn("Nutrition fetch stopped early")
		}
		ds := service.NutritionDataset(items)
		if err := writeDataset(cfg, ds); err != nil {
			appLogger.WithError(err).Fatal("Failed to write nutrition")
		}
		appLogger.WithField(logger.FieldRows, ds.Len()).Info("Saved nutrition items")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeDataset writes ds to the file the pipeline reads for its kind.
func writeDataset(cfg *config.Config, ds *domain.Dataset) error {
	d, ok := cfg.Dataset(ds.Kind)
	if !ok {
		return fmt.Errorf("no dataset configured for %s", ds.Kind)
	}
	if err := os.MkdirAll(cfg.Source.DataDir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(cfg.Source.DataDir, d.File)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := source.WriteCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
