package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/output"
)

// addOutputFlags registers --output-format, --out and --out-dir.
func addOutputFlags(cmd *cobra.Command, formats ...output.Format) {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	cmd.Flags().String("output-format", string(output.FormatTable), "Output format: "+strings.Join(names, "|"))
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory")
}

// outputTarget is where and how a command writes its result.
type outputTarget struct {
	Format output.Format
	Path   string
	Dir    string
}

// resolveOutput reads the output flags, rejecting formats the command does
// not list and combining --out with --out-dir.
func resolveOutput(cmd *cobra.Command, allowed ...output.Format) (outputTarget, error) {
	var target outputTarget

	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return target, err
	}
	if target.Format, err = output.ParseFormat(value); err != nil {
		return target, err
	}
	if len(allowed) > 0 && !containsFormat(allowed, target.Format) {
		return target, fmt.Errorf("unsupported output format: %s", target.Format)
	}

	if target.Path, err = cmd.Flags().GetString("out"); err != nil {
		return target, err
	}
	if target.Dir, err = cmd.Flags().GetString("out-dir"); err != nil {
		return target, err
	}
	target.Path = strings.TrimSpace(target.Path)
	target.Dir = strings.TrimSpace(target.Dir)
	if target.Path != "" && target.Dir != "" {
		return target, fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return target, nil
}

func containsFormat(formats []output.Format, f output.Format) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}

// open returns the sink for the target. With --out-dir the file is named
// from name and the format extension.
func (t outputTarget) open(stdout io.Writer, name string) (*outputSink, error) {
	path := t.Path
	if t.Dir != "" {
		dir, err := ensureOutDir(t.Dir)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, sanitizeFilename(name)+"."+t.Format.Extension())
	}
	return openSink(path, stdout)
}

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

// write emits text with a trailing newline.
func (s *outputSink) write(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(s.writer, text)
	return err
}

func (s *outputSink) isStdout() bool { return s.path == "-" }

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func openSink(path string, stdout io.Writer) (*outputSink, error) {
	if path == "" || path == "-" {
		return &outputSink{writer: stdout, close: func() error { return nil }, path: "-"}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: path}, nil
}

func ensureOutDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir, nil
	}
	return abs, nil
}
