// modelinfo is a CLI utility for inspecting 3D model assets without a GPU.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Faultbox/hungryfish/internal/logger"
	"github.com/Faultbox/hungryfish/pkg/importer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(os.Stdout, args)
	case "textures", "tex":
		err = cmdTextures(os.Stdout, args)
	case "extract", "x":
		err = cmdExtract(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `modelinfo - model asset inspector

Usage:
  modelinfo <command> [options]

Commands:
  info [-v] <model>              Load the model headlessly and summarize it
  textures <model>               List material texture references per slot
  extract <model> [output_dir]   Write embedded textures to a directory

Common options:
  -flip      Flip texture V coordinates on import (default true)
  -normals   Generate normals for meshes without them
  -debug     Print load diagnostics
`)
	fmt.Fprintf(w, "Formats: %s\n\n", strings.Join(importer.Default(importer.Options{}).Extensions(), " "))
	fmt.Fprintln(w, `Examples:
  modelinfo info -v assets/great_white_shark.glb
  modelinfo textures assets/low_poly_fish.glb
  modelinfo extract assets/great_white_shark.glb ./textures`)
}

// importFlags registers the options every command shares.
func importFlags(fs *flag.FlagSet) (opts *importer.Options, debug *bool) {
	opts = &importer.Options{}
	fs.BoolVar(&opts.FlipUVs, "flip", true, "flip texture V coordinates (-flip=false keeps them as stored)")
	fs.BoolVar(&opts.GenerateNormals, "normals", false, "generate missing normals")
	debug = fs.Bool("debug", false, "print load diagnostics")
	return opts, debug
}

func initLogger(debug bool) error {
	if !debug {
		return nil
	}
	return logger.Init("debug", "")
}
