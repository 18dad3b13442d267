package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/summarize"
)

type summarizeRequest struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// SummaryQuota caps summaries per team. Optional.
type SummaryQuota interface {
	Allow(ctx context.Context, team string) (bool, error)
	Record(ctx context.Context, team string) error
}

// HandleSummarize condenses free text into a short summary. quota may be nil.
func HandleSummarize(summarizer summarize.Summarizer, quota SummaryQuota) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())

		var req summarizeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		text := strings.TrimSpace(req.Text)
		if text == "" {
			respondError(w, http.StatusBadRequest, "Missing text")
			return
		}
		style := summarize.ParseStyle(req.Style)

		team, _ := auth.GetTeamEmail(r.Context())
		if quota != nil {
			allowed, err := quota.Allow(r.Context(), team)
			if err != nil {
				log.Error("Failed to check summary quota", "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to summarize")
				return
			}
			if !allowed {
				respondError(w, http.StatusTooManyRequests, "Monthly summary quota exceeded")
				return
			}
		}

		summary, err := summarizer.Summarize(r.Context(), text, style)
		if err != nil {
			log.Error("Failed to summarize", "error", err, "style", style)
			respondError(w, http.StatusInternalServerError, "Failed to summarize")
			return
		}
		if quota != nil {
			if err := quota.Record(r.Context(), team); err != nil {
				log.Warn("Failed to record summary quota", "error", err)
			}
		}
		respondJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
	}
}
