// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vkolodii/bej/bej"
)

func main() {
	var (
		schemaPath = flag.String("s", "", "schema dictionary file")
		annoPath   = flag.String("a", "", "annotation dictionary file")
		bejPath    = flag.String("b", "", "BEJ encoded input file")
		outPath    = flag.String("o", "", "output file (default: derived from -b)")
		verbose    = flag.Bool("v", false, "enable progress logging on stderr")
		verboseL   = flag.Bool("verbose", false, "alias for -v")
		configPath = flag.String("c", "", "batch manifest (YAML) of {schema,annotation,bej,output} jobs")
		configL    = flag.String("config", "", "alias for -c")
	)
	flag.Parse()
	if flag.NArg() > 0 {
		if flag.Arg(0) != "decode" {
			fmt.Fprintf(os.Stderr, "unknown command %q; only \"decode\" is supported\n", flag.Arg(0))
			os.Exit(1)
		}
		// flag.Parse stops at the first non-flag argument, so the flags
		// that follow the "decode" command are parsed here.
		flag.CommandLine.Parse(flag.Args()[1:])
	}
	*verbose = *verbose || *verboseL
	if *configPath == "" {
		*configPath = *configL
	}

	var jobs []job
	if *configPath != "" {
		m, err := loadManifest(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		jobs = m.Jobs
	} else {
		if *schemaPath == "" || *annoPath == "" || *bejPath == "" {
			fmt.Fprintln(os.Stderr, "decode requires -s (schema dictionary), -a (annotation dictionary), -b (BEJ encoded file)")
			os.Exit(1)
		}
		jobs = []job{{Schema: *schemaPath, Annotation: *annoPath, Bej: *bejPath, Output: *outPath}}
	}

	status := 0
	for _, j := range jobs {
		if err := runJob(j, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", j.Bej, err)
			status = 1
		}
	}
	os.Exit(status)
}

// runJob decodes one BEJ file against its two dictionaries and writes the
// resulting JSON document to its derived or explicit output path
// (spec.md §6).
func runJob(j job, verbose bool) error {
	corrID := uuid.New().String()[:8]
	logf := func(format string, args ...any) {
		if verbose {
			fmt.Fprintf(os.Stderr, "[%s] "+format+"\n", append([]any{corrID}, args...)...)
		}
	}

	logf("decoding %s (schema=%s annotation=%s)", j.Bej, j.Schema, j.Annotation)

	schemaDict, err := loadDictionaryFile(j.Schema, logf)
	if err != nil {
		return fmt.Errorf("schema dictionary: %w", err)
	}
	annoDict, err := loadDictionaryFile(j.Annotation, logf)
	if err != nil {
		return fmt.Errorf("annotation dictionary: %w", err)
	}

	in, closer, err := bej.OpenBejSource(j.Bej)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	outPath := j.Output
	if outPath == "" {
		outPath = deriveOutputPath(j.Bej)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	ctx := bej.NewDecoderContext(schemaDict, annoDict, w)
	ctx.Warn = func(format string, args ...any) { logf(format, args...) }

	if err := ctx.Decode(in); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %q: %w", outPath, err)
	}

	logf("wrote %s", outPath)
	fmt.Printf("decoded %s -> %s\n", j.Bej, outPath)
	return nil
}

// loadDictionaryFile opens and parses a packed dictionary file, logging a
// one-line summary at -v (original_source/decode.c's load_dictionary
// prints the same fields to stdout; here they go to the verbose stream).
func loadDictionaryFile(path string, logf func(string, ...any)) (*bej.Dictionary, error) {
	src, err := bej.OpenDictionarySource(path)
	if err != nil {
		return nil, err
	}
	d, err := bej.LoadDictionary(src)
	if err != nil {
		return nil, err
	}
	logf("dictionary %s: version=%d flags=%d entries=%d schema_version=%d size=%d fingerprint=%s",
		path, d.VersionTag, d.Flags, d.EntryCount, d.SchemaVersion, d.DictionarySize, d.Fingerprint())
	for _, rerr := range d.RangeErrors {
		logf("%v", rerr)
	}
	return d, nil
}

// deriveOutputPath replaces the final path component's last extension
// with .json, or appends .json if the filename has none (spec.md §6,
// grounded on original_source/main.c's manual last-dot/last-separator
// scan — path/filepath already draws that boundary correctly).
func deriveOutputPath(bejFile string) string {
	ext := filepath.Ext(bejFile)
	if ext == "" {
		return bejFile + ".json"
	}
	return strings.TrimSuffix(bejFile, ext) + ".json"
}
