// Command slidedeck assembles HTML slide files into a single deck file.
// Input is either a directory of slides or an explicit file list; layout
// selects the page geometry. With --validate the slides are parsed but
// nothing is written.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slidesmith/slidesmith-go/internal/deck"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1) //nolint:forbidigo // CLI must exit non-zero on failure
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("slidedeck", pflag.ContinueOnError)
	htmlDir := flags.String("html-dir", "", "directory containing *.html slide files")
	htmlFiles := flags.StringArray("html", nil, "explicit slide file (repeatable)")
	layoutName := flags.String("layout", deck.DefaultLayout, "page layout: 16:9, 4:3, A1, A2, A3, or A4")
	output := flags.String("output", "", "deck output path")
	validate := flags.Bool("validate", false, "parse slides without writing output")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: slidedeck --html-dir <dir> | --html <file> [--html <file>...] --output <deck.html> [--layout <name>] [--validate]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *htmlDir != "" && len(*htmlFiles) > 0 {
		return fmt.Errorf("use either --html-dir or --html, not both")
	}

	files := *htmlFiles
	if *htmlDir != "" {
		collected, err := deck.CollectSlides(*htmlDir)
		if err != nil {
			return err
		}
		files = collected
	}
	if len(files) == 0 {
		flags.Usage()
		return fmt.Errorf("no slide files given")
	}

	if !*validate && *output == "" {
		return fmt.Errorf("missing --output for deck generation")
	}

	layout, err := deck.LayoutByName(*layoutName)
	if err != nil {
		return err
	}

	built, err := deck.Build(files, layout)
	if err != nil {
		return err
	}

	if *validate {
		fmt.Fprintf(os.Stdout, "validated %d slides (%s)\n", len(built.Slides), layout.Name)
		return nil
	}

	if err := built.WriteFile(*output); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d slides, %s)\n", *output, len(built.Slides), layout.Name)
	return nil
}
