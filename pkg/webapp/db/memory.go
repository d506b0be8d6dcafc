package db

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu sync.Mutex

	installations  map[string]*InstallationModel
	configurations map[string]*ConfigurationModel
	tasks          []*TaskModel
	pullRequests   []*PullRequestModel
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		installations:  make(map[string]*InstallationModel),
		configurations: make(map[string]*ConfigurationModel),
	}
}

func (s *MemoryStore) GetInstallation(ctx context.Context, installationID int64) (*InstallationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, installation := range s.installations {
		if installation.InstallationID == installationID {
			copied := *installation
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetInstallationByGitHubID(ctx context.Context, githubID string) (*InstallationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if installation, ok := s.installations[githubID]; ok {
		copied := *installation
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListInstallations(ctx context.Context) ([]*InstallationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*InstallationModel, 0, len(s.installations))
	for _, installation := range s.installations {
		copied := *installation
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectName < out[j].ProjectName })
	return out, nil
}

func (s *MemoryStore) SaveInstallation(ctx context.Context, installation *InstallationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	installation.UpdatedAt = time.Now().UTC()
	copied := *installation
	s.installations[installation.GitHubID] = &copied
	return nil
}

func (s *MemoryStore) GetConfiguration(ctx context.Context, githubID string) (*ConfigurationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if configuration, ok := s.configurations[githubID]; ok {
		copied := *configuration
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveConfiguration(ctx context.Context, configuration *ConfigurationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	configuration.UpdatedAt = time.Now().UTC()
	copied := *configuration
	s.configurations[configuration.GitHubID] = &copied
	return nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, task *TaskModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	copied := *task
	s.tasks = append(s.tasks, &copied)
	return nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task *TaskModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.UpdatedAt = time.Now().UTC()
	for i, existing := range s.tasks {
		if existing.ID == task.ID {
			copied := *task
			s.tasks[i] = &copied
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) ListTasksPaged(ctx context.Context, page Page) ([]*TaskModel, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.normalize("created_at")

	var filtered []*TaskModel
	for _, task := range s.tasks {
		if page.Filters["type"] != "" && task.Type != page.Filters["type"] {
			continue
		}
		if page.Filters["org_id"] != "" && task.OrgID != page.Filters["org_id"] {
			continue
		}
		if page.Filters["status"] != "" && string(task.Status) != page.Filters["status"] {
			continue
		}
		copied := *task
		filtered = append(filtered, &copied)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if page.SortOrder == "asc" {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return pageSlice(filtered, page), int64(len(filtered)), nil
}

func (s *MemoryStore) FindPullRequest(ctx context.Context, orgID, repoName string, pullRequest int) (*PullRequestModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pr := range s.pullRequests {
		if pr.OrgID == orgID && pr.RepoName == repoName && pr.PullRequest == pullRequest {
			copied := *pr
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SavePullRequest(ctx context.Context, pullRequest *PullRequestModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pullRequest.UpdatedAt = time.Now().UTC()
	for i, existing := range s.pullRequests {
		if existing.OrgID == pullRequest.OrgID &&
			existing.RepoName == pullRequest.RepoName &&
			existing.PullRequest == pullRequest.PullRequest {
			copied := *pullRequest
			s.pullRequests[i] = &copied
			return nil
		}
	}
	copied := *pullRequest
	s.pullRequests = append(s.pullRequests, &copied)
	return nil
}

func (s *MemoryStore) ListPullRequestsPaged(ctx context.Context, page Page) ([]*PullRequestModel, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.normalize("updated_at")

	var filtered []*PullRequestModel
	for _, pr := range s.pullRequests {
		if page.Filters["org_id"] != "" && pr.OrgID != page.Filters["org_id"] {
			continue
		}
		if page.Filters["status"] != "" && string(pr.Status) != page.Filters["status"] {
			continue
		}
		copied := *pr
		filtered = append(filtered, &copied)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if page.SortOrder == "asc" {
			return filtered[i].UpdatedAt.Before(filtered[j].UpdatedAt)
		}
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})

	return pageSlice(filtered, page), int64(len(filtered)), nil
}

func pageSlice[T any](items []*T, page Page) []*T {
	start := (page.PageIndex - 1) * page.PageSize
	if start >= len(items) {
		return nil
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ Store = (*MemoryStore)(nil)
