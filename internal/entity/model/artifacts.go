package model

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/topicdex/internal/domain"
)

const maxLine = 64 << 20

// readLines returns the lines of path with trailing whitespace removed.
// A missing optional file yields nil.
func readLines(path string, optional bool) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedManifest, filepath.Base(path), err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}

// readFloats reads one number per line.
func readFloats(path string, optional bool) ([]float64, error) {
	lines, err := readLines(path, optional)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(lines))
	for i, l := range lines {
		if l == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(l), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrMalformedManifest, filepath.Base(path), i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// readMatrix reads one whitespace-separated row of numbers per line.
func readMatrix(path string, optional bool) ([][]float64, error) {
	lines, err := readLines(path, optional)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(lines))
	for i, l := range lines {
		fields := strings.Fields(l)
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for j, f := range fields {
			if row[j], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrMalformedManifest, filepath.Base(path), i+1, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// readSparse reads one "idx|weight" row per line into dense rows of width columns.
// Empty lines are documents without topic mass.
func readSparse(path string, width int) ([][]float64, error) {
	lines, err := readLines(path, false)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(lines))
	for i, l := range lines {
		row := make([]float64, width)
		for _, tok := range strings.Fields(l) {
			rawIdx, rawW, ok := strings.Cut(tok, "|")
			idx, errIdx := strconv.Atoi(strings.TrimPrefix(rawIdx, "t"))
			w, errW := strconv.ParseFloat(rawW, 64)
			if !ok || errIdx != nil || errW != nil || idx < 0 || idx >= width {
				return nil, fmt.Errorf("%w: %s line %d: bad entry %q",
					domain.ErrMalformedManifest, filepath.Base(path), i+1, tok)
			}
			row[idx] = w
		}
		out[i] = row
	}
	return out, nil
}
