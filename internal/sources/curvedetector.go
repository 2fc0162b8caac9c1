package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/cache"
	"github.com/solgems/gemscan/internal/domain"
)

// AnalysisMode selects how the detector estimates curve progress.
type AnalysisMode string

const (
	// ModeHeuristic estimates progress from the pool's lamport balance. Fast.
	ModeHeuristic AnalysisMode = "heuristic"
	// ModeAccurate decodes each curve account's reserve state. One extra RPC
	// round per page but exact.
	ModeAccurate AnalysisMode = "accurate"
)

// Typical pump.fun-style curve economics: ~85 SOL raised fills the curve.
const (
	curveTargetLamports = 85 * 1_000_000_000
	lamportsPerSol      = 1_000_000_000
)

// CurveDetector scans launchpad program accounts over JSON-RPC for bonding
// curves nearing graduation. The scan is the slowest discovery source, so it
// hints a 60s timeout and stores every successful result in the curve cache
// for the cached-curve fallback.
type CurveDetector struct {
	rpcURL     string
	programID  string
	mode       AnalysisMode
	httpClient *http.Client
	curveCache *cache.CurveCache
}

// NewCurveDetector creates the on-chain detector. curveCache may be nil.
func NewCurveDetector(rpcURL, programID string, mode AnalysisMode, curveCache *cache.CurveCache) *CurveDetector {
	if mode == "" {
		mode = ModeHeuristic
	}
	return &CurveDetector{
		rpcURL:     rpcURL,
		programID:  programID,
		mode:       mode,
		httpClient: &http.Client{Timeout: 55 * time.Second},
		curveCache: curveCache,
	}
}

func (d *CurveDetector) Name() string { return string(domain.SourceCurveDetector) }

// Timeout hints the orchestrator: pool scans need more headroom than HTTP feeds.
func (d *CurveDetector) Timeout() time.Duration { return 60 * time.Second }

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type programAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Lamports uint64 `json:"lamports"`
		Data     struct {
			Parsed struct {
				Info struct {
					Mint            string  `json:"mint"`
					Symbol          string  `json:"symbol"`
					VirtualSol      float64 `json:"virtualSolReserves"`
					RealSolReserves uint64  `json:"realSolReserves"`
					Complete        bool    `json:"complete"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

// Discover scans the launchpad program for active curves and maps those past
// 70% progress. Successful scans refresh the curve cache.
func (d *CurveDetector) Discover(ctx context.Context) ([]domain.Candidate, error) {
	accounts, err := d.fetchProgramAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("curve detector: %w", err)
	}

	now := time.Now()
	candidates := make([]domain.Candidate, 0, len(accounts))
	for _, acc := range accounts {
		info := acc.Account.Data.Parsed.Info
		if info.Complete || info.Mint == "" {
			continue
		}

		progress := d.progressFor(acc)
		if progress < minBondingProgress {
			continue
		}

		candidates = append(candidates, domain.Candidate{
			Address:              info.Mint,
			Symbol:               info.Symbol,
			Source:               domain.SourceCurveDetector,
			BondingCurveProgress: progress,
			GraduationThreshold:  float64(curveTargetLamports) / lamportsPerSol,
			DiscoveredAt:         now,
		})
	}

	log.Info().
		Int("accounts", len(accounts)).
		Int("candidates", len(candidates)).
		Str("mode", string(d.mode)).
		Msg("curve scan complete")

	if d.curveCache != nil && len(candidates) > 0 {
		if err := d.curveCache.Store(ctx, candidates); err != nil {
			log.Warn().Err(err).Msg("failed to refresh curve cache")
		}
	}
	return candidates, nil
}

// progressFor estimates curve fill. Heuristic mode reads the account's lamport
// balance; accurate mode trusts the decoded reserve state.
func (d *CurveDetector) progressFor(acc programAccount) float64 {
	var raised float64
	if d.mode == ModeAccurate && acc.Account.Data.Parsed.Info.RealSolReserves > 0 {
		raised = float64(acc.Account.Data.Parsed.Info.RealSolReserves)
	} else {
		raised = float64(acc.Account.Lamports)
	}

	progress := raised / curveTargetLamports * 100
	if progress > 100 {
		progress = 100
	}
	return progress
}

func (d *CurveDetector) fetchProgramAccounts(ctx context.Context) ([]programAccount, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getProgramAccounts",
		Params: []interface{}{
			d.programID,
			map[string]interface{}{"encoding": "jsonParsed", "commitment": "confirmed"},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var rpcResp struct {
		Result []programAccount `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, err
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// CachedCurveSource serves the last successful curve scan from redis. The
// orchestrator registers it as the curve detector's fallback.
type CachedCurveSource struct {
	curveCache *cache.CurveCache
}

// NewCachedCurveSource creates the fallback source.
func NewCachedCurveSource(curveCache *cache.CurveCache) *CachedCurveSource {
	return &CachedCurveSource{curveCache: curveCache}
}

func (s *CachedCurveSource) Name() string { return string(domain.SourceCachedCurve) }

// Discover loads the cached scan; a cache miss yields an empty contribution.
func (s *CachedCurveSource) Discover(ctx context.Context) ([]domain.Candidate, error) {
	return s.curveCache.Load(ctx)
}
