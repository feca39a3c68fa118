package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/logger"
)

// ResultCache stores encoded results keyed by source content. salt names
// everything besides the content that affects the result.
type ResultCache interface {
	Lookup(src []byte, salt string) ([]byte, bool)
	Store(src []byte, salt string, data []byte) error
}

// WithCache makes the analyzer reuse results for unchanged sources. Fixing
// always recomputes.
func (a *Analyzer) WithCache(c ResultCache) *Analyzer {
	cp := *a
	cp.cache = c
	return &cp
}

// WithJobs sets how many files AnalyzeFiles reads and analyses at once.
// Zero or less means one per CPU.
func (a *Analyzer) WithJobs(n int) *Analyzer {
	cp := *a
	if n <= 0 {
		n = runtime.NumCPU()
	}
	cp.jobs = n
	return &cp
}

// salt fingerprints the options, so that a configuration change invalidates
// cached results.
func (a *Analyzer) salt() string {
	return fmt.Sprintf("v1|%+v", a.opts)
}

// analyzeCached is AnalyzeSource behind the result cache.
func (a *Analyzer) analyzeCached(name string, src []byte) (*FileResult, error) {
	if a.cache == nil || a.fix {
		return a.AnalyzeSource(name, src)
	}
	salt := a.salt()
	if data, ok := a.cache.Lookup(src, salt); ok {
		var res FileResult
		if err := json.Unmarshal(data, &res); err == nil {
			res.File = name
			for i := range res.Findings {
				res.Findings[i].File = name
			}
			return &res, nil
		}
		a.log.Warn("discarding cache entry", logger.Fields(logger.FieldFile, name))
	}
	res, err := a.AnalyzeSource(name, src)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(res); err == nil {
		if err := a.cache.Store(src, salt, data); err != nil {
			a.log.Warn("cache store failed", logger.Fields(logger.FieldFile, name, logger.FieldReason, err.Error()))
		}
	}
	return res, nil
}

// AnalyzeFiles analyses the files concurrently. Results come back in the
// order of paths; a file that cannot be read or parsed carries its error
// rather than failing the batch. Only cancellation of ctx is returned as
// an error.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (a *Analyzer) analyzeFile(path string) *FileResult {
	src, err := os.ReadFile(path)
	if err != nil {
		return failed(path, jerrors.New("IO-0001", map[string]any{"Path": path, "Err": err}).WithFile(path))
	}
	res, err := a.analyzeCached(path, src)
	if err != nil {
		if se, ok := err.(*jerrors.SourceError); ok {
			err = se.WithFile(path)
		}
		a.log.Debug("skipped", logger.Fields(logger.FieldFile, path, logger.FieldReason, err.Error()))
		return failed(path, err)
	}
	return res
}

func failed(path string, err error) *FileResult {
	return &FileResult{File: path, Err: err, Error: err.Error()}
}
