package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avonfire/stationhouse/internal/blog"
	"github.com/avonfire/stationhouse/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo categories and blog posts",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoCategories = []blog.CreateCategoryInput{
	{
		Name:        "Fire Safety",
		Slug:        "fire-safety",
		Description: "Prevention guidance, inspection checklists, and seasonal safety advice.",
		Color:       "#d64541",
	},
	{
		Name:        "Community",
		Slug:        "community",
		Description: "Station open days, school visits, and local partnerships.",
		Color:       "#2e86ab",
	},
	{
		Name:        "Recruitment",
		Slug:        "recruitment",
		Description: "Openings, training pathways, and what the selection process looks like.",
		Color:       "#f0a202",
	},
}

var demoPosts = []blog.CreatePostInput{
	{
		Title:     "Smoke Alarm Checks: A Two-Minute Habit",
		Slug:      "smoke-alarm-checks",
		Content:   "Test every alarm monthly, replace batteries yearly, and replace the unit itself after ten years. Most fatal house fires we attend had a disabled or dead alarm.",
		Excerpt:   "Monthly alarm tests are the cheapest life insurance there is.",
		Category:  "fire-safety",
		Published: true,
	},
	{
		Title:     "Open Day This Autumn",
		Slug:      "open-day-autumn",
		Content:   "The station opens its doors again this autumn. Tour the appliance bay, meet the crews, and let the kids try the hose line under supervision.",
		Excerpt:   "Tour the station and meet the crews.",
		Category:  "community",
		Published: true,
	},
	{
		Title:      "We're Hiring On-Call Firefighters",
		Slug:       "hiring-on-call",
		Content:    "On-call firefighters respond from home or work within five minutes of the station. Full training provided. Applications close at the end of the quarter.",
		Excerpt:    "Live or work near the station? Join the on-call crew.",
		Category:   "recruitment",
		Published:  true,
		IsFeatured: true,
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := blog.NewStore(pool)

	// Check if seed has already run.
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("checking existing categories: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	for _, input := range demoCategories {
		c, err := store.CreateCategory(ctx, input)
		if err != nil {
			return fmt.Errorf("creating category %q: %w", input.Name, err)
		}
		slog.Info("created category", "name", c.Name, "id", c.ID)
	}

	for _, input := range demoPosts {
		p, err := store.CreatePost(ctx, input)
		if err != nil {
			return fmt.Errorf("creating post %q: %w", input.Title, err)
		}
		slog.Info("created post", "slug", p.Slug, "id", p.ID)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Categories: %d\n", len(demoCategories))
	fmt.Printf("Posts:      %d\n", len(demoPosts))
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl http://localhost:8080/api/v1/posts\n")
	fmt.Printf("  curl http://localhost:8080/api/v1/posts/smoke-alarm-checks\n")

	return nil
}
