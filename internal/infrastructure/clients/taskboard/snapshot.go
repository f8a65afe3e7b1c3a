package taskboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/infrastructure/cache"
	"github.com/pravoguard/court-monitor/internal/infrastructure/config"
	"github.com/pravoguard/court-monitor/internal/service/knowncases"
)

// snapshotCacheKey addresses the raw snapshot payload in Redis.
const snapshotCacheKey = "taskboard:snapshot"

// SnapshotClient reads a case-number snapshot published at a fixed URL by an
// out-of-band sync job. The board credentials stay with that job; this host
// sees only the derived artifact. Payloads are cached in Redis for the
// configured freshness window.
type SnapshotClient struct {
	snapshotURL string
	httpClient  *http.Client
	cache       *cache.SnapshotCache
	logger      *zap.Logger
}

// NewSnapshotClient builds the snapshot transport. cache may be nil, in which
// case every call fetches.
func NewSnapshotClient(cfg config.TaskBoardConfig, snapshotCache *cache.SnapshotCache, logger *zap.Logger) *SnapshotClient {
	return &SnapshotClient{
		snapshotURL: cfg.SnapshotURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cache:       snapshotCache,
		logger:      logger,
	}
}

type snapshotPayload struct {
	CaseNumbers []string `json:"case_numbers"`
	UpdatedAt   string   `json:"updated_at"`
}

// Tasks returns one synthetic task per snapshot case number. The snapshot
// carries no task metadata, so the task id is fixed and the title is the case
// number itself; downstream extraction treats the title as the source of
// truth either way.
func (c *SnapshotClient) Tasks(ctx context.Context) ([]knowncases.Task, error) {
	payload, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]knowncases.Task, 0, len(payload.CaseNumbers))
	for _, number := range payload.CaseNumbers {
		tasks = append(tasks, knowncases.Task{
			ID:   "snapshot",
			Name: number,
		})
	}

	c.logger.Debug("loaded task-board snapshot",
		zap.Int("case_numbers", len(tasks)),
		zap.String("updated_at", payload.UpdatedAt))
	return tasks, nil
}

func (c *SnapshotClient) fetch(ctx context.Context) (*snapshotPayload, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, snapshotCacheKey); err == nil {
			var payload snapshotPayload
			if err := json.Unmarshal(cached, &payload); err == nil {
				return &payload, nil
			}
			// Unreadable cache entries are dropped and refetched.
			_ = c.cache.Delete(ctx, snapshotCacheKey)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("building snapshot request").WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("SNAPSHOT_UNREACHABLE", "snapshot fetch failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError("SNAPSHOT_ERROR",
			fmt.Sprintf("unexpected snapshot status: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalError("SNAPSHOT_READ", "reading snapshot response").WithCause(err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewDataError("SNAPSHOT_DECODE", "decoding snapshot payload").WithCause(err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, snapshotCacheKey, body); err != nil {
			c.logger.Warn("failed to cache snapshot", zap.Error(err))
		}
	}
	return &payload, nil
}

// NewTaskSource selects the transport configured for this deployment.
func NewTaskSource(cfg config.TaskBoardConfig, snapshotCache *cache.SnapshotCache, logger *zap.Logger) (knowncases.TaskSource, error) {
	switch cfg.Mode {
	case config.TaskSourceDirect:
		return NewDirectClient(cfg, logger), nil
	case config.TaskSourceSnapshot:
		return NewSnapshotClient(cfg, snapshotCache, logger), nil
	default:
		return nil, apperrors.NewValidationError("BAD_TASK_SOURCE",
			fmt.Sprintf("unknown task-board mode %q", cfg.Mode))
	}
}
