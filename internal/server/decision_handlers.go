// file: internal/server/decision_handlers.go
// version: 1.0.0
// guid: 6d88b1d4-6660-4a39-bf51-e8200276ad90

package server

import (
	"github.com/gin-gonic/gin"

	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/download"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
	"github.com/jdfalk/media-acquirer/internal/quality"
)

type classifyRequest struct {
	Title     string           `json:"title" binding:"required"`
	MediaType models.MediaType `json:"media_type"`
}

type decisionRequest struct {
	ProfileID  int                `json:"profile_id" binding:"required"`
	MediaType  models.MediaType   `json:"media_type"`
	Title      string             `json:"title"`
	Year       int                `json:"year"`
	Candidates []models.Candidate `json:"candidates"`
	Limits     quality.SizeLimits `json:"limits"`
}

type acquireRequest struct {
	decisionRequest
	Media    models.MediaRef `json:"media"`
	Backend  string          `json:"backend"`
	Category string          `json:"category"`
	SavePath string          `json:"save_path"`
	Paused   bool            `json:"paused"`
}

type upgradeRequest struct {
	ProfileID      int              `json:"profile_id" binding:"required"`
	MediaType      models.MediaType `json:"media_type"`
	CurrentQuality string           `json:"current_quality"`
	Title          string           `json:"title" binding:"required"`
}

func (r decisionRequest) toRequest() acquisition.Request {
	return acquisition.Request{
		MediaType:  r.MediaType,
		ProfileID:  r.ProfileID,
		Title:      r.Title,
		Year:       r.Year,
		Candidates: r.Candidates,
		Limits:     r.Limits,
	}
}

func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if req.MediaType == "" {
		req.MediaType = models.MediaMovie
	}
	if respondIfInvalid(c, ValidateTitle(req.Title, maxTitleLength), ValidateMediaType(req.MediaType, false)) {
		return
	}

	resp := ClassifyResponse{MediaType: req.MediaType}
	switch req.MediaType {
	case models.MediaMusic:
		album := parser.ParseAlbum(req.Title)
		resp.Album = &album
	case models.MediaBook:
		book := parser.ParseBook(req.Title)
		resp.Book = &book
	default:
		release := parser.ParsePath(req.Title, req.MediaType)
		resp.Release = &release
	}
	RespondWithOK(c, resp)
}

func (s *Server) rank(c *gin.Context) {
	var req decisionRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if respondIfInvalid(c, ValidateMediaType(req.MediaType, true), ValidateCandidates(req.Candidates, maxCandidates)) {
		return
	}

	decisions, err := s.deps.Orchestrator.Decide(c.Request.Context(), req.toRequest())
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: decisions, Count: len(decisions)})
}

func (s *Server) checkUpgrade(c *gin.Context) {
	var req upgradeRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if respondIfInvalid(c, ValidateTitle(req.Title, maxTitleLength), ValidateMediaType(req.MediaType, true)) {
		return
	}

	profile, err := s.deps.Store.GetProfile(req.ProfileID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = profile.MediaType
	}
	RespondWithOK(c, UpgradeResponse{
		Upgrade:     quality.IsUpgrade(req.CurrentQuality, req.Title, mediaType, profile, profile.UpgradeAllowed),
		CutoffUnmet: quality.IsCutoffUnmet(req.CurrentQuality, mediaType, profile),
	})
}

func (s *Server) acquire(c *gin.Context) {
	var req acquireRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if respondIfInvalid(c,
		ValidateMediaRef(req.Media),
		ValidateMediaType(req.MediaType, true),
		ValidateCandidates(req.Candidates, maxCandidates),
	) {
		return
	}

	ar := req.toRequest()
	ar.Media = req.Media
	ar.Backend = req.Backend
	ar.Options = download.SubmitOptions{Category: req.Category, SavePath: req.SavePath, Paused: req.Paused}

	job, err := s.deps.Orchestrator.Acquire(c.Request.Context(), ar)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithCreated(c, job)
}
