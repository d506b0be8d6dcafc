package webapp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// Read-only API endpoints serving the persisted state as paged JSON.

func (a *App) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	installations, err := a.store.ListInstallations(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, map[string]any{
		"organizations": installations,
		"total":         len(installations),
	})
}

func (a *App) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, total, err := a.store.ListTasksPaged(r.Context(), pageFromQuery(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, map[string]any{"tasks": tasks, "total": total})
}

func (a *App) handleListPullRequests(w http.ResponseWriter, r *http.Request) {
	pullRequests, total, err := a.store.ListPullRequestsPaged(r.Context(), pageFromQuery(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, map[string]any{"pull_requests": pullRequests, "total": total})
}

// pageFromQuery extracts paging parameters; any other query parameter
// becomes a per-field filter.
func pageFromQuery(r *http.Request) db.Page {
	query := r.URL.Query()
	page := db.Page{Filters: map[string]string{}}

	for key, values := range query {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]
		switch key {
		case "pageIndex":
			page.PageIndex, _ = strconv.Atoi(value)
		case "pageSize":
			page.PageSize, _ = strconv.Atoi(value)
		case "sortField":
			page.SortField = value
		case "sortOrder":
			page.SortOrder = value
		default:
			page.Filters[key] = value
		}
	}
	return page
}

func (a *App) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	a.logger.Error("request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
