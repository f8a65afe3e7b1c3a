// Package taskboard implements the two transports for reading the external
// task board: direct authenticated API polling and a published snapshot
// artifact. Both satisfy knowncases.TaskSource.
package taskboard

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/infrastructure/config"
	"github.com/pravoguard/court-monitor/internal/service/knowncases"
)

// DirectClient polls the task-board admin API. Each request carries an MD5
// signature over the sorted query string and the account API key.
type DirectClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// DirectOption customizes a DirectClient.
type DirectOption func(*DirectClient)

// WithBaseURL overrides the derived API root, used by tests.
func WithBaseURL(base string) DirectOption {
	return func(c *DirectClient) { c.baseURL = base }
}

// NewDirectClient builds the authenticated API transport.
func NewDirectClient(cfg config.TaskBoardConfig, logger *zap.Logger, opts ...DirectOption) *DirectClient {
	c := &DirectClient{
		baseURL:    cfg.BaseURL(),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiTask struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type apiProject struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// Tasks returns every active task across active projects.
func (c *DirectClient) Tasks(ctx context.Context) ([]knowncases.Task, error) {
	projects, err := c.projects(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []knowncases.Task
	for _, project := range projects {
		data, err := c.call(ctx, "get_tasks", url.Values{"id_project": {project.ID.String()}})
		if err != nil {
			// One failing project must not hide the rest of the board.
			c.logger.Warn("failed to fetch project tasks",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			continue
		}

		var projectTasks []apiTask
		if err := json.Unmarshal(data, &projectTasks); err != nil {
			return nil, apperrors.NewDataError("TASKBOARD_DECODE", "decoding task list").WithCause(err)
		}
		for _, t := range projectTasks {
			tasks = append(tasks, knowncases.Task{
				ID:          t.ID.String(),
				Name:        t.Name,
				ProjectID:   project.ID.String(),
				ProjectName: project.Name,
			})
		}
	}

	c.logger.Debug("fetched task board",
		zap.Int("projects", len(projects)),
		zap.Int("tasks", len(tasks)))
	return tasks, nil
}

func (c *DirectClient) projects(ctx context.Context) ([]apiProject, error) {
	data, err := c.call(ctx, "get_projects", url.Values{})
	if err != nil {
		return nil, err
	}
	var projects []apiProject
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, apperrors.NewDataError("TASKBOARD_DECODE", "decoding project list").WithCause(err)
	}
	return projects, nil
}

// call performs one signed request. The signature is the MD5 hex digest of
// the alphabetically sorted query string concatenated with the API key.
func (c *DirectClient) call(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	params.Set("action", action)

	reqURL := c.baseURL + "?" + params.Encode() + "&hash=" + c.sign(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("building task-board request").WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("TASKBOARD_UNREACHABLE", "task-board request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError("TASKBOARD_ERROR",
			fmt.Sprintf("unexpected task-board status: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalError("TASKBOARD_READ", "reading task-board response").WithCause(err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.NewDataError("TASKBOARD_DECODE", "decoding task-board envelope").WithCause(err)
	}
	if envelope.Status != "ok" {
		return nil, apperrors.NewExternalError("TASKBOARD_REJECTED",
			fmt.Sprintf("task board rejected %s: %s", action, envelope.Message))
	}
	return envelope.Data, nil
}

func (c *DirectClient) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&") + c.apiKey))
	return hex.EncodeToString(sum[:])
}
