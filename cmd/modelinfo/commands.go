package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/hungryfish/internal/engine/gpu"
	"github.com/Faultbox/hungryfish/internal/engine/model"
	"github.com/Faultbox/hungryfish/internal/engine/texture"
	"github.com/Faultbox/hungryfish/internal/logger"
	"github.com/Faultbox/hungryfish/pkg/importer"
	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

var errUsage = errors.New("missing arguments")

func cmdInfo(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "list textures per mesh")
	opts, debug := importFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo info [-v] <model>")
		return errUsage
	}
	if err := initLogger(*debug); err != nil {
		return err
	}
	defer logger.Sync()

	return printInfo(w, fs.Arg(0), *opts, *verbose)
}

// printInfo loads path through the full model pipeline on a headless
// backend and prints what it produced. Counts are digit-grouped.
func printInfo(w io.Writer, path string, opts importer.Options, verbose bool) error {
	p := message.NewPrinter(language.English)
	backend := gpu.NewHeadless()
	m := model.New(model.Deps{
		Importer: importer.Default(opts),
		Backend:  backend,
	})
	m.Load(path)
	defer m.Destroy()

	if m.MeshCount() == 0 {
		return fmt.Errorf("%s: no meshes loaded (run with -debug for details)", path)
	}

	stats := backend.Stats()
	hits, misses := m.Cache().Stats()
	b := m.Bounds()
	size := b.Size()

	p.Fprintf(w, "Model:    %s\n", path)
	p.Fprintf(w, "Meshes:   %d\n", m.MeshCount())
	p.Fprintf(w, "Vertices: %d\n", stats.Vertices)
	p.Fprintf(w, "Indices:  %d\n", stats.Indices)
	p.Fprintf(w, "Textures: %d (%.2f MB, %d cache hits, %d misses)\n",
		m.TextureCount(), float64(stats.TextureBytes)/(1024*1024), hits, misses)
	p.Fprintf(w, "Size:     %.3f x %.3f x %.3f\n", size[0], size[1], size[2])

	if !verbose {
		return nil
	}
	fmt.Fprintln(w)
	for i, mesh := range m.Meshes() {
		name := mesh.Name
		if name == "" {
			name = "(unnamed)"
		}
		p.Fprintf(w, "  [%d] %-20s %6d verts %6d indices %d textures\n",
			i, name, len(mesh.Vertices), len(mesh.Indices), len(mesh.Textures))
		for _, tex := range mesh.Textures {
			p.Fprintf(w, "        %-12s #%d %s", tex.Type, tex.Handle, tex.Identity)
			if first, ok := m.Cache().Type(tex.Identity); ok && first != tex.Type {
				p.Fprintf(w, " (shared, first loaded as %s)", first)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func cmdTextures(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("textures", flag.ContinueOnError)
	opts, _ := importFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo textures <model>")
		return errUsage
	}

	scene, err := importer.Default(*opts).Import(fs.Arg(0))
	if err != nil {
		return err
	}
	printTextures(w, scene)
	return nil
}

// printTextures prints a scene summary, every material's references in slot
// order, then the embedded textures.
func printTextures(w io.Writer, scene *scenegraph.Scene) {
	fmt.Fprintf(w, "scene: %d meshes, %d placed, %d materials, %d embedded textures\n",
		len(scene.Meshes), scene.MeshCount(), len(scene.Materials), len(scene.Textures))
	for i, mat := range scene.Materials {
		fmt.Fprintf(w, "material %d %q\n", i, mat.Name)
		for _, typ := range scenegraph.TextureTypes() {
			for j := 0; j < mat.TextureCount(typ); j++ {
				fmt.Fprintf(w, "  %-12s %s\n", typ, mat.Texture(typ, j))
			}
		}
	}
	for i, tex := range scene.Textures {
		if tex.Compressed() {
			fmt.Fprintf(w, "embedded *%d %s %d bytes\n", i, embeddedFormat(tex), len(tex.Data))
		} else {
			fmt.Fprintf(w, "embedded *%d raw %dx%d\n", i, tex.Width, tex.Height)
		}
	}
}

func cmdExtract(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	opts, _ := importFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo extract <model> [output_dir]")
		return errUsage
	}
	outputDir := "."
	if fs.NArg() > 1 {
		outputDir = fs.Arg(1)
	}

	scene, err := importer.Default(*opts).Import(fs.Arg(0))
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(fs.Arg(0)), filepath.Ext(fs.Arg(0)))
	written, err := extractTextures(scene, outputDir, base)
	for _, p := range written {
		fmt.Fprintf(w, "Extracted: %s\n", p)
	}
	fmt.Fprintf(os.Stderr, "\nExtracted %d of %d textures\n", len(written), len(scene.Textures))
	return err
}

// extractTextures writes every embedded texture of scene to dir as
// <base>_<index>.<ext>. Compressed blobs are written verbatim; raw texel
// data is encoded as PNG.
func extractTextures(scene *scenegraph.Scene, dir, base string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	var errs []error
	for i, tex := range scene.Textures {
		data := tex.Data
		ext := embeddedFormat(tex)
		if !tex.Compressed() {
			encoded, err := encodeRaw(tex)
			if err != nil {
				errs = append(errs, fmt.Errorf("texture %d: %w", i, err))
				continue
			}
			data, ext = encoded, "png"
		}

		out := filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, i, ext))
		if err := os.WriteFile(out, data, 0644); err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, out)
	}
	return written, errors.Join(errs...)
}

// embeddedFormat names a compressed blob's format, preferring the sniffed
// type over the importer's hint.
func embeddedFormat(tex *scenegraph.EmbeddedTexture) string {
	if f := texture.Format(tex.Data); f != "" {
		return f
	}
	if tex.FormatHint != "" {
		return strings.ToLower(tex.FormatHint)
	}
	return "bin"
}

func encodeRaw(tex *scenegraph.EmbeddedTexture) ([]byte, error) {
	if want := tex.Width * tex.Height * 4; len(tex.Data) < want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", model.ErrRawSize, len(tex.Data), tex.Width, tex.Height)
	}
	img := &image.NRGBA{
		Pix:    tex.Data[:tex.Width*tex.Height*4],
		Stride: tex.Width * 4,
		Rect:   image.Rect(0, 0, tex.Width, tex.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
