package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/daymark/internal"
	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/icalfeed"
	pkgconfig "github.com/starford/daymark/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openQuiet opens the stack with logs on stderr so stdout carries results.
func openQuiet(cmd *cli.Command) (*internal.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func month(ctx context.Context, cmd *cli.Command) error {
	target, err := days.ParseTarget(cmd.String("target"), cmd.String("current"))
	if err != nil {
		return err
	}
	st, err := openQuiet(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now().In(st.Days.Dates().Location)
	y, m := int(cmd.Int("year")), int(cmd.Int("month"))
	if y == 0 {
		y = now.Year()
	}
	if m == 0 {
		m = int(now.Month())
	}
	if err := days.CheckMonth(y, m); err != nil {
		return err
	}
	if err := days.CheckFormat(cmd.String("format")); err != nil {
		return err
	}

	dm := st.Days.Month(ctx, target, days.MonthOptions{
		Year:              y,
		Month:             time.Month(m),
		WithAllProperties: cmd.Bool("all"),
		WithJournalFill:   cmd.Bool("journal"),
		DateFormat:        cmd.String("format"),
	})
	return printJSON(cmd.Root().Writer, map[string]any{
		"year": y, "month": m, "target": target.String(),
		"weeks": days.WeekPages(st.Days.Dates(), y, time.Month(m)),
		"days":  dm,
	})
}

func year(ctx context.Context, cmd *cli.Command) error {
	target, err := days.ParseTarget(cmd.String("target"), cmd.String("current"))
	if err != nil {
		return err
	}
	st, err := openQuiet(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	y := int(cmd.Int("year"))
	if y == 0 {
		y = time.Now().In(st.Days.Dates().Location).Year()
	}
	if err := days.CheckYear(y); err != nil {
		return err
	}
	if err := days.CheckFormat(cmd.String("format")); err != nil {
		return err
	}

	dm, title := st.Days.Year(ctx, target, y, cmd.String("format"))
	return printJSON(cmd.Root().Writer, map[string]any{"year": y, "title": title, "days": dm})
}

func events(ctx context.Context, cmd *cli.Command) error {
	st, err := openQuiet(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	from, to, err := days.ParseRange(cmd.String("start"), cmd.String("end"), st.Days.Dates())
	if err != nil {
		return err
	}
	evs := st.Days.EventsForRange(ctx, from, to)
	if cmd.Bool("ics") {
		return icalfeed.Render(cmd.Root().Writer, evs, time.Now())
	}
	return printJSON(cmd.Root().Writer, evs)
}

func reindex(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("force") {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(cfg.SQLite.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove index: %w", err)
			}
		}
	}
	st, err := internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer st.Close()
	return printJSON(cmd.Root().Writer, st.Synced)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Page name, [[Page]], ((block-id)), * or @query"},
		&cli.StringFlag{Name: "current", Usage: "Page being viewed, used by target *"},
		&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Year, defaults to the current year"},
		&cli.StringFlag{Name: "format", Usage: "Date format override for property values"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "daymark",
		Usage:  "Calendar day annotations from a Markdown journal vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the vault watcher and the reconcile job",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:  "month",
				Usage: "Print the day map of one month as JSON",
				Flags: append(targetFlags(),
					&cli.IntFlag{Name: "month", Aliases: []string{"m"}, Usage: "Month 1-12, defaults to the current month"},
					&cli.BoolFlag{Name: "all", Usage: "Scan all configured properties"},
					&cli.BoolFlag{Name: "journal", Usage: "Add journal, task and schedule signals"},
				),
				Action: month,
			},
			{
				Name:   "year",
				Usage:  "Print the day map of one year and the target title as JSON",
				Flags:  targetFlags(),
				Action: year,
			},
			{
				Name:  "events",
				Usage: "Print scheduled and deadline events in a day range",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "start", Required: true, Usage: "First day, yyyy-mm-dd"},
					&cli.StringFlag{Name: "end", Required: true, Usage: "Last day, yyyy-mm-dd"},
					&cli.BoolFlag{Name: "ics", Usage: "Print an iCalendar feed instead of JSON"},
				},
				Action: events,
			},
			{
				Name:  "reindex",
				Usage: "Sync the vault into the index and print what changed",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Drop the index and rebuild it from scratch"},
				},
				Action: reindex,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
