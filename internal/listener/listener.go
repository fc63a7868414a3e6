package listener

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"aduanas/internal/config"
	"aduanas/internal/pipeline"
	"aduanas/internal/storage"
	"aduanas/internal/util"
)

// Service watches the raw directory and runs every new workbook through the
// pipeline. Files are recognised by content hash, so renames are not
// reprocessed.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Seen      int
	Processed int
	Failed    int
}

// RunCycle scans the raw directory once.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{}
	files, err := pipeline.ListRawFiles(s.cfg.RawDir)
	if err != nil {
		return res, err
	}

	svc := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, nil
		}
		res.Seen++
		hash, err := fileHash(path)
		if err != nil {
			s.log.Warn("hash failed", zap.String("path", path), zap.Error(err))
			continue
		}
		known, err := s.db.GetSourceByHash(hash)
		if err != nil {
			return res, err
		}
		if known != nil && known.Status == storage.SourceStatusProcessed {
			continue
		}

		runID, err := s.processFile(ctx, svc, path)
		if err != nil {
			res.Failed++
			s.log.Warn("raw file failed", zap.String("path", path), zap.Error(err))
			if err := s.db.UpsertSource(path, hash, storage.SourceStatusFailed, ""); err != nil {
				return res, err
			}
			continue
		}
		res.Processed++
		if err := s.db.UpsertSource(path, hash, storage.SourceStatusProcessed, runID); err != nil {
			return res, err
		}
	}

	s.log.Info("listener cycle done", zap.Int("seen", res.Seen), zap.Int("processed", res.Processed), zap.Int("failed", res.Failed))
	return res, nil
}

func (s *Service) processFile(ctx context.Context, svc *pipeline.ProcessingService, path string) (string, error) {
	base := util.SanitizeFileName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	outDir := filepath.Join(s.cfg.OutputDir, "listener")
	unified := filepath.Join(outDir, base+".unified.txt")

	if _, err := pipeline.UnifyFiles([]string{path}, s.cfg.RawSheet, unified, s.log); err != nil {
		return "", err
	}

	out := pipeline.Outputs{CSV: filepath.Join(outDir, base+"_"+s.cfg.Variant+".csv")}
	if s.cfg.ListenerAutoXLSX {
		out.XLSX = filepath.Join(outDir, base+"_"+s.cfg.Variant+".xlsx")
	}
	res, err := svc.RunFile(ctx, unified, out)
	if err != nil {
		return "", err
	}
	return res.Summary.RunID, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "listener: open %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "listener: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
