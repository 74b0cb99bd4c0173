// Package loader reads manifests from files, directories and standard
// input.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/yaml"

	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
)

const (
	// Stdin is the path naming standard input.
	Stdin = "-"
	// StdinSource is the provenance of documents read from standard
	// input.
	StdinSource = "<stdin>"

	bufferSize = 4096
)

// Extensions lists the file extensions picked up from directories.
var Extensions = []string{".yaml", ".yml", ".json"}

type Loader struct {
	stdin       io.Reader
	concurrency int
	log         logr.Logger
}

type Option func(l *Loader)

func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		l.stdin = r
	}
}

// WithConcurrency bounds the number of files read at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		l.concurrency = n
	}
}

func WithLogger(log logr.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

func New(options ...Option) *Loader {
	l := &Loader{stdin: os.Stdin, concurrency: 8, log: logr.Discard()}
	for _, option := range options {
		option(l)
	}
	if l.concurrency < 1 {
		l.concurrency = 1
	}
	return l
}

// Files expands paths into the list of files to read, in order.
// Directories contribute the manifests they directly contain, sorted by
// name.
func (l *Loader) Files(paths []string) ([]string, error) {
	var files []string
	var errs []error
	for _, path := range paths {
		if path == Stdin {
			files = append(files, path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading directory %s: %w", path, err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsManifest(entry.Name()) {
				continue
			}
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, utilerrors.NewAggregate(errs)
}

// IsManifest reports whether name carries one of Extensions, ignoring
// case.
func IsManifest(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads every document of every path. Documents keep the order of
// paths and, within a file, their order in the stream; Index counts the
// non-empty documents of a file. Every unreadable file is reported in
// the aggregated error, and the documents of the others are returned
// all the same.
func (l *Loader) Load(ctx context.Context, paths []string) ([]extractor.Document, error) {
	files, err := l.Files(paths)
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}

	loaded := make([][]extractor.Document, len(files))
	failed := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			loaded[i], failed[i] = l.loadFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []extractor.Document
	for i, file := range files {
		if failed[i] != nil {
			errs = append(errs, failed[i])
			continue
		}
		l.log.V(2).Info("loaded", "source", file, "documents", len(loaded[i]))
		docs = append(docs, loaded[i]...)
	}
	return docs, utilerrors.NewAggregate(errs)
}

func (l *Loader) loadFile(path string) ([]extractor.Document, error) {
	if path == Stdin {
		docs, err := Decode(StdinSource, l.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		return docs, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := Decode(path, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return docs, nil
}

// Decode splits a YAML or JSON stream into documents attributed to
// source. Empty documents are dropped.
func Decode(source string, r io.Reader) ([]extractor.Document, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bufio.NewReader(r), bufferSize)

	var docs []extractor.Document
	for {
		var obj map[string]interface{}
		if err := decoder.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("document %d: %w", len(docs), err)
		}
		if len(obj) == 0 {
			continue
		}
		docs = append(docs, extractor.Document{Source: source, Index: len(docs), Object: obj})
	}
}
