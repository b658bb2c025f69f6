// file: internal/server/job_handlers.go
// version: 1.0.0
// guid: cab34b89-23e6-4ee6-ac5f-e116be667bf3

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/media-acquirer/internal/download"
)

type failureRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.deps.Store.ListJobs(ParseQueryBool(c, "active", false))
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: jobs, Count: len(jobs)})
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.deps.Store.GetJob(c.Param("id"))
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, job)
}

func (s *Server) reportFailure(c *gin.Context) {
	var req failureRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	job, err := s.deps.Store.GetJob(c.Param("id"))
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	if job.Status.Terminal() {
		RespondWithConflict(c, "job "+job.ID+" is already "+string(job.Status))
		return
	}

	blacklisted, err := s.deps.Orchestrator.HandleFailure(c.Request.Context(), job, strings.TrimSpace(req.Reason))
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, FailureResponse{Job: job, Blacklisted: blacklisted})
}

// pollJobs answers 207 when some backends could not be reached.
func (s *Server) pollJobs(c *gin.Context) {
	result, err := s.deps.Orchestrator.Poll(c.Request.Context())
	resp := PollResponse{PollResult: result}
	if err == nil {
		RespondWithOK(c, resp)
		return
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			resp.Errors = append(resp.Errors, e.Error())
		}
	} else {
		resp.Errors = []string{err.Error()}
	}
	logErrorWithContext(c, http.StatusMultiStatus, err.Error())
	c.JSON(http.StatusMultiStatus, resp)
}

func (s *Server) listBackends(c *gin.Context) {
	names := s.deps.Backends.Names()
	infos := make([]BackendInfo, 0, len(names))
	for _, name := range names {
		b, _ := s.deps.Backends.Get(name)
		infos = append(infos, BackendInfo{Name: name, Kind: string(b.Kind())})
	}
	RespondWithOK(c, ListResponse{Items: infos, Count: len(infos)})
}

func (s *Server) testBackend(c *gin.Context) {
	name := c.Param("name")
	b, ok := s.deps.Backends.Get(name)
	if !ok {
		RespondWithNotFound(c, "backend", name)
		return
	}
	if err := b.TestConnection(c.Request.Context()); err != nil {
		if errors.Is(err, download.ErrAuthFailed) {
			RespondWithError(c, http.StatusBadGateway, err.Error(), "BACKEND_AUTH")
			return
		}
		RespondWithError(c, http.StatusBadGateway, err.Error(), "BACKEND_UNREACHABLE")
		return
	}
	RespondWithOK(c, StatusResponse{Status: "ok", Data: BackendInfo{Name: name, Kind: string(b.Kind())}})
}
