package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/cassandragargoyle/shipwright/cli/render"
	"github.com/cassandragargoyle/shipwright/gitx"
	"github.com/cassandragargoyle/shipwright/log"
	"github.com/cassandragargoyle/shipwright/notes"
)

// NotesCommand returns the notes command with subcommands.
func NotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Work with release-note records",
		Subcommands: []*cli.Command{
			notesGenerateCommand(),
			notesCheckCommand(),
			notesMissingCommand(),
		},
	}
}

func notesFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(CommonFlags(),
		&cli.StringFlag{
			Name:  "notes-dir",
			Usage: "Directory holding release-note records",
			Value: "release-notes",
		},
	)
	return append(flags, extra...)
}

func notesGenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate the aggregated release-notes document",
		Flags: notesFlags(
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output directory (empty writes the document to stdout)",
			},
			&cli.StringFlag{
				Name:  "filename",
				Usage: "Output filename within the output directory",
				Value: notes.DefaultFilename,
			},
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "Limit to the given numeric versions",
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Document title prefix",
			},
		),
		Action: notesGenerateAction,
	}
}

func notesGenerateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	store := &notes.Store{Dir: firstNonEmpty(c.String("notes-dir"), cfg.NotesDir, "release-notes")}
	product := firstNonEmpty(c.String("product"), cfg.Product, "shipwright")

	agg := notes.NewAggregator(store, product, log.NewLogger(log.RunContext{}))

	var subset []string
	if only := c.StringSlice("only"); len(only) > 0 {
		subset = only
	}
	doc, err := agg.Aggregate(subset)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	outputDir := c.String("output")
	if outputDir == "" {
		fmt.Fprint(c.App.Writer, doc)
		return nil
	}

	filename := firstNonEmpty(c.String("filename"), notes.DefaultFilename)
	path, err := notes.WriteDocument(outputDir, filename, doc)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	render.NewReporter(c).Successf("wrote %s", path)
	return nil
}

func notesCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Verify every released version has a release-note record",
		Flags: notesFlags(
			&cli.StringFlag{
				Name:  "root",
				Usage: "Repository to read release tags from",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "warn-only",
				Usage: "Report missing records without failing",
			},
		),
		Action: notesCheckAction,
	}
}

// CheckResponse is the response for notes check and notes missing.
type CheckResponse struct {
	Known   int      `json:"known_versions"`
	Missing []string `json:"missing"`
}

func notesCheckAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	warnOnly := c.Bool("warn-only") || cfg.Notes.WarnOnly

	repo, err := gitx.Open(c.String("root"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	tags, err := repo.VersionTags(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	store := &notes.Store{Dir: firstNonEmpty(c.String("notes-dir"), cfg.NotesDir, "release-notes")}
	agg := notes.NewAggregator(store, firstNonEmpty(cfg.Product, "shipwright"), log.NewLogger(log.RunContext{}))

	missing, checkErr := agg.CheckCompleteness(tags, warnOnly)
	if renderErr := r.Render(CheckResponse{Known: len(tags), Missing: missing}); renderErr != nil {
		return renderErr
	}
	if checkErr != nil {
		return cli.Exit(checkErr.Error(), 1)
	}
	return nil
}

func notesMissingCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-missing",
		Usage: "List released versions without a release-note record",
		Flags: notesFlags(
			&cli.StringFlag{
				Name:  "root",
				Usage: "Repository to read release tags from",
				Value: ".",
			},
		),
		Action: notesMissingAction,
	}
}

func notesMissingAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	repo, err := gitx.Open(c.String("root"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	tags, err := repo.VersionTags(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	store := &notes.Store{Dir: firstNonEmpty(c.String("notes-dir"), cfg.NotesDir, "release-notes")}
	missing, err := store.Missing(tags)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(CheckResponse{Known: len(tags), Missing: missing})
}
