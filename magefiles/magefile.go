// Package main contains Mage build targets for marcsplit developer tooling.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the Divide and Extract targets use.
var projectDirs = []string{
	"data",
	"out/records",
	"out/tables",
	"out/reports",
}

// Init creates the project directory structure.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "marcsplit"
	cmdPkg  = "./cmd/marcsplit"
)

// Build compiles the CLI binary into bin/, stamping the version from
// MARCSPLIT_VERSION when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version := os.Getenv("MARCSPLIT_VERSION")
	if version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests of every package.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// countGoLines walks the tree and counts non-blank lines in Go files,
// either only _test.go files or only the others.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := walkFiles(root, func(path string) error {
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		return scan(path, bufio.ScanLines, func(line string) {
			if strings.TrimSpace(line) != "" {
				total++
			}
		})
	})
	return total, err
}

// countDocWords counts the words of the Markdown files in the tree.
func countDocWords(root string) (int, error) {
	total := 0
	err := walkFiles(root, func(path string) error {
		if filepath.Ext(path) != ".md" {
			return nil
		}
		return scan(path, bufio.ScanWords, func(string) { total++ })
	})
	return total, err
}

// walkFiles calls fn for every regular file under root, skipping hidden and
// underscore-prefixed directories and the build output.
func walkFiles(root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == binDir) {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path)
	})
}

func scan(path string, split bufio.SplitFunc, fn func(string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	s.Split(split)
	for s.Scan() {
		fn(s.Text())
	}
	return s.Err()
}

// Divide builds the CLI and splits data/input.mrc into out/records with the
// profile named by MARCSPLIT_PROFILE (default basic).
func Divide() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "divide", "data/input.mrc",
		"--profile", profile(), "--out", "out/records", "--prefix", "ucla")
}

// Extract builds the CLI and writes one CSV table per destination plus a
// tally report.
func Extract() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "extract", "data/input.mrc",
		"--profile", profile(), "--out", "out/tables", "--prefix", "ucla",
		"--tally", "out/reports/tally.yaml")
}

// Census reports record counts and year spans of the divided files.
func Census() error {
	mg.Deps(Build)
	files, err := filepath.Glob("out/records/*.mrc")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no record files in out/records; run mage divide first")
	}
	return sh.RunV(filepath.Join(binDir, binName), append([]string{"census"}, files...)...)
}

func profile() string {
	if p := os.Getenv("MARCSPLIT_PROFILE"); p != "" {
		return p
	}
	return "basic"
}
