// Command bsbidx builds and queries a disk-backed BSBI inverted index.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/wizenheimer/bsbidx"
)

var usageMessage = `usage: bsbidx <command> [arguments]

Commands:

	index [--index-dir=dir] [--overwrite] <corpus-dir>
	query-bool [--index-dir=dir] <expr>
	query-vector [--index-dir=dir] [--idf] <text> [top-k]
	query-lm [--index-dir=dir] <text> [top-k] [lambda]
	compress-index [--dgaps] [--index-dir=dir] [--out=dir]

Flags must come before the positional arguments.

index builds a new index from every .txt file under corpus-dir.
query-bool evaluates a Boolean expression ("casa AND NOT perro").
query-vector ranks documents by cosine similarity to text.
query-lm ranks documents by query-likelihood under a unigram language model.
compress-index writes a term-per-file VByte/Elias-gamma encoding of an
already-built index.
`

const defaultIndexDir = "./bsbidx-index"

func usage() {
	fmt.Fprint(os.Stderr, usageMessage)
	os.Exit(2)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "index":
		err = runIndex(rest)
	case "query-bool":
		err = runQueryBool(rest)
	case "query-vector":
		err = runQueryVector(rest)
	case "query-lm":
		err = runQueryLM(rest)
	case "compress-index":
		err = runCompressIndex(rest)
	default:
		fmt.Fprintf(os.Stderr, "bsbidx: unknown command %q\n", cmd)
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "bsbidx: %v\n", err)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor maps a sentinel error to a distinct process exit code so
// scripts invoking bsbidx can distinguish a caller-fixable policy conflict
// (an index directory already exists) from a damaged index directory,
// rather than collapsing every failure onto the same generic status.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, bsbidx.ErrIndexDirExists):
		return 3
	case errors.Is(err, bsbidx.ErrIndexIncomplete), errors.Is(err, bsbidx.ErrIndexNotFound):
		return 4
	default:
		return 1
	}
}

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	indexDir := fs.String("index-dir", defaultIndexDir, "output index directory")
	overwrite := fs.Bool("overwrite", false, "overwrite an existing index directory")
	memLimit := fs.Int("memory-limit", 1000, "documents buffered per chunk before flushing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("index requires exactly one <corpus-dir> argument")
	}
	corpusDir := fs.Arg(0)

	cfg := bsbidx.DefaultConfig(*indexDir)
	cfg.Overwrite = *overwrite
	cfg.MemoryLimit = *memLimit

	it, err := bsbidx.NewDirectoryDocumentIterator(corpusDir)
	if err != nil {
		return err
	}

	indexer := bsbidx.NewIndexer(cfg)
	idx, err := indexer.IndexCollection(it)
	if err != nil {
		return err
	}
	defer idx.Close()

	stats, err := idx.Stats()
	if err != nil {
		return err
	}
	slog.Info("index built", "dir", *indexDir, "terms", stats.TermCount, "docs", stats.DocCount)
	return nil
}

func runQueryBool(args []string) error {
	fs := flag.NewFlagSet("query-bool", flag.ExitOnError)
	indexDir := fs.String("index-dir", defaultIndexDir, "index directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("query-bool requires exactly one <expr> argument")
	}

	idx, err := bsbidx.OpenIndex(*indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	result, err := idx.EvaluateBoolean(fs.Arg(0))
	if err != nil {
		return err
	}
	it := result.Iterator()
	for it.HasNext() {
		docID := it.Next()
		name, _ := idx.DocName(docID)
		fmt.Printf("%d\t%s\n", docID, name)
	}
	return nil
}

func runQueryVector(args []string) error {
	fs := flag.NewFlagSet("query-vector", flag.ExitOnError)
	indexDir := fs.String("index-dir", defaultIndexDir, "index directory")
	useIDF := fs.Bool("idf", false, "weight by tf-idf instead of raw tf")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("query-vector requires <text> [top-k]")
	}

	topK := 10
	if fs.NArg() == 2 {
		var err error
		topK, err = strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid top-k %q: %w", fs.Arg(1), err)
		}
	}

	idx, err := bsbidx.OpenIndex(*indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	results, err := idx.EvaluateVector(fs.Arg(0), topK, bsbidx.VectorConfig{UseIDF: *useIDF})
	if err != nil {
		return err
	}
	printScored(idx, results)
	return nil
}

func runQueryLM(args []string) error {
	fs := flag.NewFlagSet("query-lm", flag.ExitOnError)
	indexDir := fs.String("index-dir", defaultIndexDir, "index directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 3 {
		return fmt.Errorf("query-lm requires <text> [top-k] [lambda]")
	}

	topK := 10
	if fs.NArg() >= 2 {
		var err error
		topK, err = strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid top-k %q: %w", fs.Arg(1), err)
		}
	}
	lambda := 0.0
	if fs.NArg() == 3 {
		var err error
		lambda, err = strconv.ParseFloat(fs.Arg(2), 64)
		if err != nil {
			return fmt.Errorf("invalid lambda %q: %w", fs.Arg(2), err)
		}
	}

	idx, err := bsbidx.OpenIndex(*indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	results, err := idx.EvaluateLM(fs.Arg(0), topK, bsbidx.LMConfig{Lambda: lambda})
	if err != nil {
		return err
	}
	printScored(idx, results)
	return nil
}

func runCompressIndex(args []string) error {
	fs := flag.NewFlagSet("compress-index", flag.ExitOnError)
	indexDir := fs.String("index-dir", defaultIndexDir, "index directory")
	outDir := fs.String("out", "", "output directory (default: <index-dir>/compressed)")
	dgaps := fs.Bool("dgaps", false, "d-gap transform document IDs before VByte encoding")
	if err := fs.Parse(args); err != nil {
		return err
	}

	idx, err := bsbidx.OpenIndex(*indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	dir := *outDir
	if dir == "" {
		dir = *indexDir + "/compressed"
	}
	if err := bsbidx.CompressIndex(idx, dir, *dgaps); err != nil {
		return err
	}
	slog.Info("index compressed", "dir", dir, "dgaps", *dgaps)
	return nil
}

func printScored(idx *bsbidx.Index, results []bsbidx.ScoredDoc) {
	for _, r := range results {
		name, _ := idx.DocName(r.DocID)
		fmt.Printf("%d\t%.6f\t%s\n", r.DocID, r.Score, name)
	}
}
