// Package catalog loads the booth catalog from a newline-delimited JSON file.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

const maxLineSize = 1 << 20

// Catalog is an immutable, loaded set of booths. Safe for concurrent reads.
type Catalog struct {
	booths []models.Booth
	byID   map[string]int
}

// All returns the booths in file order. Callers must not modify the slice.
func (c *Catalog) All() []models.Booth {
	return c.booths
}

// Get returns the booth with the given id.
func (c *Catalog) Get(id string) (models.Booth, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Booth{}, false
	}
	return c.booths[i], true
}

// Len returns the number of booths.
func (c *Catalog) Len() int {
	return len(c.booths)
}

// Stats counts the lines kept and dropped while parsing.
type Stats struct {
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// Parse reads JSONL booth records. Blank lines are ignored; malformed lines, lines
// longer than maxLineSize, lines without an id and repeated ids are dropped with
// a warning and never abort the parse. Only a failing reader does.
func Parse(r io.Reader, logger *zap.Logger) (*Catalog, Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Catalog{byID: make(map[string]int)}
	var stats Stats

	br := bufio.NewReaderSize(r, 64*1024)
	for lineNo := 1; ; lineNo++ {
		raw, tooLong, err := readLine(br)
		if err != nil && err != io.EOF {
			return nil, stats, fmt.Errorf("failed to read catalog at line %d: %w", lineNo, err)
		}

		switch {
		case tooLong:
			stats.Dropped++
			logger.Warn("catalog_line_dropped",
				zap.Int("line", lineNo),
				zap.String("reason", "line_too_long"),
				zap.Int("max_bytes", maxLineSize),
			)
		default:
			c.add(raw, lineNo, &stats, logger)
		}

		if err == io.EOF {
			break
		}
	}

	return c, stats, nil
}

// readLine returns the next line without its line ending. A line longer than
// maxLineSize is consumed to its end but not buffered, and reported as tooLong.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := br.ReadSlice('\n')
		if !tooLong {
			// Room for a trailing "\r\n" on a line of exactly maxLineSize.
			if len(line)+len(chunk) > maxLineSize+2 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if readErr == bufio.ErrBufferFull {
			continue
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > maxLineSize {
			tooLong, line = true, nil
		}
		return line, tooLong, readErr
	}
}

func (c *Catalog) add(raw []byte, lineNo int, stats *Stats, logger *zap.Logger) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return
	}

	var booth models.Booth
	if err := json.Unmarshal(line, &booth); err != nil {
		stats.Dropped++
		logger.Warn("catalog_line_dropped",
			zap.Int("line", lineNo),
			zap.String("reason", "malformed_json"),
			zap.Error(err),
		)
		return
	}
	booth.ID = strings.TrimSpace(booth.ID)
	if booth.ID == "" {
		stats.Dropped++
		logger.Warn("catalog_line_dropped", zap.Int("line", lineNo), zap.String("reason", "missing_id"))
		return
	}
	if _, dup := c.byID[booth.ID]; dup {
		stats.Dropped++
		logger.Warn("catalog_line_dropped",
			zap.Int("line", lineNo),
			zap.String("reason", "duplicate_id"),
			zap.String("booth_id", booth.ID),
		)
		return
	}

	c.byID[booth.ID] = len(c.booths)
	c.booths = append(c.booths, booth)
	stats.Kept++
}

// Loader fetches the catalog from a file path or http(s) URL once and caches it.
// A failed load is not cached, so the next call retries.
type Loader struct {
	source     string
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	catalog *Catalog
	stats   Stats
}

// NewLoader creates a loader for source.
func NewLoader(source string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:     source,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Load returns the cached catalog, reading the source on first use.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.catalog != nil {
		return l.catalog, nil
	}

	rc, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()

	c, stats, err := Parse(rc, l.logger)
	if err != nil {
		return nil, err
	}

	l.catalog = c
	l.stats = stats
	l.logger.Info("catalog_loaded",
		zap.String("source", l.source),
		zap.Int("booths", stats.Kept),
		zap.Int("dropped_lines", stats.Dropped),
	)
	return c, nil
}

// Stats returns the parse statistics of the cached catalog.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch catalog: unexpected status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(l.source)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return f, nil
}
