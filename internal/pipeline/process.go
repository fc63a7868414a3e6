package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"aduanas/internal/catalog"
	"aduanas/internal/config"
	"aduanas/internal/storage"
)

const metaLastRun = "last_run_id"

// ProcessingService wires configuration, catalogs, storage and writers
// around the Processor.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

// NewProcessingService accepts a nil db; runs are then not persisted.
func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger) *ProcessingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

// Outputs names the files a run writes. Empty paths are skipped.
type Outputs struct {
	CSV  string
	XLSX string
	JSON string
}

// BuildPipeline loads the variant's dictionary and rules. A missing
// dictionary is fatal; a missing rule file only costs the rule stage.
func (s *ProcessingService) BuildPipeline() (*Pipeline, error) {
	variant, err := VariantByName(s.cfg.Variant)
	if err != nil {
		return nil, err
	}
	dict, err := catalog.LoadDictionary(s.cfg.DictionaryPath)
	if err != nil {
		return nil, err
	}
	rules, err := catalog.LoadRules(s.cfg.RulesPath)
	if err != nil {
		s.log.Warn("rules unavailable, continuing without them", zap.String("path", s.cfg.RulesPath), zap.Error(err))
	}
	s.log.Info("catalogs loaded",
		zap.String("variant", variant.Name),
		zap.Int("dictionary_entries", dict.Size()),
		zap.Int("rules", rules.Len()),
	)
	return NewPipeline(variant, rules, dict, s.log), nil
}

func (s *ProcessingService) RunFile(ctx context.Context, inputPath string, out Outputs) (Result, error) {
	pl, err := s.BuildPipeline()
	if err != nil {
		return Result{}, err
	}
	res, err := NewProcessor(pl, s.cfg.Workers, s.log).ProcessFile(ctx, inputPath)
	if err != nil {
		return res, err
	}
	if err := s.writeOutputs(res, out); err != nil {
		return res, err
	}
	if s.db != nil {
		if err := s.db.SaveRun(res.Summary, res.Records); err != nil {
			return res, err
		}
		if err := s.db.SetMetadata(metaLastRun, res.Summary.RunID); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *ProcessingService) writeOutputs(res Result, out Outputs) error {
	if out.CSV != "" {
		if err := WriteCSV(res.Records, out.CSV, s.cfg.CSVDelimiter); err != nil {
			return err
		}
		s.log.Info("csv written", zap.String("path", out.CSV), zap.Int("records", len(res.Records)))
	}
	if out.XLSX != "" {
		if err := WriteXLSX(res.Records, out.XLSX); err != nil {
			return err
		}
		s.log.Info("workbook written", zap.String("path", out.XLSX))
	}
	if out.JSON != "" {
		if err := WriteJSONReport(res, out.JSON); err != nil {
			return err
		}
		s.log.Info("report written", zap.String("path", out.JSON))
	}
	return nil
}

// ExportRun rewrites a stored run as a workbook. An empty runID means the
// latest run.
func (s *ProcessingService) ExportRun(runID, outputPath string) error {
	if s.db == nil {
		return eris.New("pipeline: export needs a database")
	}
	if runID == "" {
		last, err := s.db.GetMetadata(metaLastRun)
		if err != nil {
			return err
		}
		if last == nil {
			return eris.New("pipeline: no runs stored yet")
		}
		runID = *last
	}
	run, err := s.db.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return eris.Errorf("pipeline: run %s not found", runID)
	}
	records, err := s.db.ListRecords(runID)
	if err != nil {
		return err
	}
	return WriteXLSX(records, outputPath)
}
