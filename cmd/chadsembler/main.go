package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erikjastrub/ChadsemblerLite/internal/config"
	"github.com/erikjastrub/ChadsemblerLite/internal/pipeline"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

// sourceExtension is the conventional Chadsembly file extension. A
// different extension is warned about, not rejected.
const sourceExtension = ".csm"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		showBanner  = flag.Bool("banner", false, "Print the derived machine geometry before running")
		configFile  = flag.String("config", "", "Path to a TOML configuration file (optional)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("Chadsembler %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "No file was passed in to be assembled")
		os.Exit(-1)
	}

	path := args[0]
	if !strings.HasSuffix(path, sourceExtension) {
		fmt.Printf("Chadsembly Warning: File name does not end with a `%s` file extension\n", sourceExtension)
	}

	source, err := os.ReadFile(path) // #nosec G304 -- user-supplied source file
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot assemble a file that does not exist")
		os.Exit(-1)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		cfg, err = config.LoadFrom(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(-1)
		}
	}

	machine, err := pipeline.Assemble(string(source), args[1:], cfg, os.Stdin, os.Stdout)
	if err != nil {
		// The error list renders its own header plus one positioned
		// line per diagnostic.
		fmt.Print(err.Error())
		os.Exit(-1)
	}

	if *showBanner {
		fmt.Printf("Chadsembler Version `%s`\n%s", Version, machine.Summary())
	}

	if err := machine.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printHelp() {
	program := filepath.Base(os.Args[0])
	fmt.Printf(`Chadsembler - assemble and execute Chadsembly programs

Usage:
  %s [options] <file%s> [!KEY=VALUE ...]

Arguments after the source file are configuration directives, parsed
identically to in-source `+"`!KEY=VALUE`"+` directives. Command-line
directives override in-source ones.

Configuration keys (case-insensitive):
  MEMORY     number of memory cells     (minimum 100)
  REGISTERS  number of GPRs             (minimum 3)
  CLOCK      inter-cycle delay in ms    (minimum 0)

Options:
`, program, sourceExtension)
	flag.PrintDefaults()
	fmt.Printf(`
Examples:
  %s program%s
  %s program%s !MEMORY=200 !REGISTERS=8
  %s -banner program%s !CLOCK=100
`, program, sourceExtension, program, sourceExtension, program, sourceExtension)
}
