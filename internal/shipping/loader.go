package shipping

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Loader reads a zone fee table from a named source.
type Loader interface {
	// Load reads the zone file at the given path or key and returns a Table.
	Load(ctx context.Context, name string) (Table, error)
}

// fileLoader implements Loader for local zone files, plain or gzipped.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based zone loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "zone-loader").Logger(),
	}
}

// Load reads a zone file containing one "prefix,fee" entry per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Table, error) {
	l.logger.Info().Str("file", filePath).Msg("loading shipping zone file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open zone file")
		return nil, fmt.Errorf("failed to open zone file %s: %w", filePath, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(filePath, ".gz") {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			l.logger.Error().Err(err).Str("file", filePath).Msg("failed to create gzip reader")
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", filePath, err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	table, err := readTable(ctx, reader)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading zone file")
		return nil, fmt.Errorf("error reading zone file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("zones_loaded", table.Len()).
		Msg("shipping zone file loaded successfully")

	return table, nil
}

// readTable parses zone entries from the reader into a Table.
func readTable(ctx context.Context, reader io.Reader) (Table, error) {
	table := NewTable(1024).(*mapTable)

	scanner := bufio.NewScanner(reader)
	lineCount := 0
	for scanner.Scan() {
		// Check context cancellation periodically
		if lineCount%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		prefix, fee, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			table.add(prefix, fee)
			lineCount++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}
