package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// Writer persists cycle reports under an output directory:
//
//	<dir>/cycles/<timestamp>_<cycle_id>.json   full report, one file per cycle
//	<dir>/finalists.jsonl                      append-only finalist stream
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteCycle persists the report and appends its finalists to the stream.
func (w *Writer) WriteCycle(report *domain.CycleReport) error {
	cyclesDir := filepath.Join(w.dir, "cycles")
	if err := os.MkdirAll(cyclesDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", report.StartedAt.UTC().Format("20060102-150405"), report.CycleID)
	path := filepath.Join(cyclesDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cycle report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cycle report: %w", err)
	}

	if err := w.appendFinalists(report); err != nil {
		return err
	}

	log.Debug().Str("path", path).Int("finalists", len(report.Finalists)).Msg("cycle artifact written")
	return nil
}

type finalistRecord struct {
	CycleID    string          `json:"cycle_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Address    string          `json:"address"`
	Symbol     string          `json:"symbol"`
	Source     string          `json:"source"`
	FinalScore float64         `json:"final_score"`
	Conviction string          `json:"conviction"`
	Risk       string          `json:"risk"`
	MarketCap  float64         `json:"market_cap_usd"`
	Liquidity  float64         `json:"liquidity_usd"`
	Breakdown  json.RawMessage `json:"breakdown"`
}

func (w *Writer) appendFinalists(report *domain.CycleReport) error {
	if len(report.Finalists) == 0 {
		return nil
	}

	path := filepath.Join(w.dir, "finalists.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open finalist stream: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, fin := range report.Finalists {
		breakdown, err := json.Marshal(fin.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown for %s: %w", fin.Candidate.Address, err)
		}
		rec := finalistRecord{
			CycleID:    report.CycleID,
			Timestamp:  report.StartedAt,
			Address:    fin.Candidate.Address,
			Symbol:     fin.Candidate.Symbol,
			Source:     string(fin.Candidate.Source),
			FinalScore: fin.FinalScore,
			Conviction: string(fin.Conviction),
			Risk:       string(fin.Breakdown.RiskAssessment.RiskLevel),
			MarketCap:  fin.Candidate.MarketCapUSD,
			Liquidity:  fin.Candidate.LiquidityUSD,
			Breakdown:  breakdown,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("append finalist record: %w", err)
		}
	}
	return nil
}
