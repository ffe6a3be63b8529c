// Command spvxform applies linked program variable info to a SPIR-V module.
//
// Usage:
//
//	spvxform [options] -stage <stage> -info <program.yaml> <input.spv>
//
// Examples:
//
//	spvxform -stage vert -info prog.yaml -o out.spv in.spv    # Transform to file
//	spvxform -stage frag -info prog.yaml -dis in.spv          # Print disassembly
//	spvxform -stage frag -info prog.yaml -o out.spv.xz in.spv # Compressed output
//	spvxform -watch -stage vert -info prog.yaml -o out.spv in.spv
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	units "github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/spvxform/internal/blobio"
	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/transform"
	"github.com/gogpu/spvxform/varinfo"
)

var (
	stageName  = flag.String("stage", "", "shader stage (vertex, fragment, ...; default: from input extension)")
	infoPath   = flag.String("info", "", "program variable info (YAML or JSON)")
	output     = flag.String("o", "", "output file, .lz4 or .xz to compress (default: stdout)")
	stripDebug = flag.Bool("strip-debug", false, "remove debug info")
	removeEFT  = flag.Bool("remove-early-fragment-tests", false, "remove the EarlyFragmentTests execution mode")
	validate   = flag.Bool("validate", false, "validate the output (uses spirv-val when installed)")
	dis        = flag.Bool("dis", false, "write disassembly instead of binary")
	watch      = flag.Bool("watch", false, "re-run when the input or info file changes")
	verbose    = flag.Bool("v", false, "verbose logging")
	version    = flag.Bool("version", false, "print version")
)

const spvxformVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("spvxform version %s\n", spvxformVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}
	inputPath := args[0]

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	stage, err := resolveStage(*stageName, inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	job := &job{
		input: inputPath,
		info:  *infoPath,
		stage: stage,
		opts: transform.Options{
			ShaderType:                           stage,
			RemoveEarlyFragmentTestsOptimization: *removeEFT,
			RemoveDebugInfo:                      *stripDebug,
			Validate:                             *validate,
			Logger:                               logger,
		},
		log: logger,
	}

	if err := job.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := job.watch(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveStage parses name, or guesses the stage from extensions such as
// shader.frag.spv when name is empty.
func resolveStage(name, inputPath string) (varinfo.ShaderType, error) {
	if name != "" {
		return varinfo.ParseShaderType(name)
	}
	base := filepath.Base(inputPath)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		if stage, err := varinfo.ParseShaderType(ext[1:]); err == nil {
			return stage, nil
		}
		base = base[:len(base)-len(ext)]
	}
	return 0, fmt.Errorf("cannot tell the stage of %s, use -stage", inputPath)
}

type job struct {
	input string
	info  string
	stage varinfo.ShaderType
	opts  transform.Options
	log   *slog.Logger
}

func (j *job) run() error {
	start := time.Now()

	infoMap := varinfo.Map{}
	if j.info != "" {
		programMap, err := varinfo.LoadProgramMapFile(j.info)
		if err != nil {
			return fmt.Errorf("reading variable info: %w", err)
		}
		if err := programMap.Stage(j.stage).CheckConsistent(); err != nil {
			return fmt.Errorf("variable info for %s: %w", j.stage, err)
		}
		infoMap = programMap.Stage(j.stage)
	}

	in, err := blobio.ReadFile(j.input)
	if err != nil {
		return err
	}

	out, err := transform.NewTransformer(in, infoMap, j.opts).Transform()
	if err != nil {
		return fmt.Errorf("transforming %s: %w", j.input, err)
	}

	if err := j.write(out); err != nil {
		return err
	}

	j.log.Debug("transformed",
		"input", j.input,
		"stage", j.stage.String(),
		"bound", fmt.Sprintf("%d -> %d", in.Bound(), out.Bound()),
		"elapsed", time.Since(start))
	if *output != "" {
		fmt.Fprintf(os.Stderr, "Successfully transformed %s (%s) to %s (%s)\n",
			j.input, units.HumanSize(float64(len(in)*4)),
			*output, units.HumanSize(float64(len(out)*4)))
	}
	return nil
}

func (j *job) write(out spirv.Blob) error {
	if *dis {
		w := os.Stdout
		if *output != "" {
			f, err := os.Create(*output)
			if err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			defer f.Close()
			w = f
		}
		return spirv.DisassembleWithOptions(w, out, spirv.DisassembleOptions{FriendlyNames: true})
	}

	if *output != "" {
		if err := blobio.WriteFile(*output, out); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	return blobio.WriteBlob(os.Stdout, out, blobio.None)
}

// watch re-runs the job whenever the input or info file is written, until
// ctx is done. Bursts of events from one save are coalesced.
func (j *job) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	files := []string{j.input}
	if j.info != "" {
		files = append(files, j.info)
	}
	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			return fmt.Errorf("watching %s: %w", f, err)
		}
	}
	j.log.Info("watching for changes", "files", files)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			j.log.Warn("watch error", "error", err)
		case event := <-watcher.Events:
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
		drain:
			for {
				// Editors write in several steps; wait until they settle.
				select {
				case <-watcher.Events:
				case <-time.After(50 * time.Millisecond):
					break drain
				}
			}
			if err := j.run(); err != nil {
				j.log.Error("transform failed", "error", err)
			}
			// Editors that save by renaming drop the watch.
			for _, f := range files {
				_ = watcher.Add(f)
			}
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spvxform [options] <input.spv>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  spvxform -stage vert -info prog.yaml -o out.spv in.spv   Transform to file\n")
	fmt.Fprintf(os.Stderr, "  spvxform -info prog.yaml -dis shader.frag.spv            Print disassembly\n")
	fmt.Fprintf(os.Stderr, "  spvxform -info prog.yaml -o out.spv.xz shader.vert.spv   Compressed output\n")
}
