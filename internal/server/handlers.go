package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/extract"
	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/spigell/skillsynx/internal/store"
)

type analysisResponse struct {
	RunID        string            `json:"run_id"`
	State        pipeline.State    `json:"state"`
	Analysis     *analysis.Result  `json:"analysis"`
	AnalysisID   string            `json:"analysis_id,omitempty"`
	Resume       *store.ResumeMeta `json:"resume,omitempty"`
	PersistError string            `json:"persist_error,omitempty"`
}

type jobsRequest struct {
	TargetRole string `json:"target_role"`
	Location   string `json:"location"`
	Salary     string `json:"salary"`
	AnalysisID string `json:"analysis_id"`
	ResumeText string `json:"resume_text"`
	Count      int    `json:"count"`
}

type jobsResponse struct {
	RunID string                `json:"run_id"`
	State pipeline.State        `json:"state"`
	Jobs  []analysis.JobListing `json:"jobs"`
}

func (s *Server) createAnalysis(c *fiber.Ctx) error {
	sess := session(c)

	release, ok := s.acquire(sess.UserID)
	if !ok {
		return ErrBusy
	}
	defer release()

	in := pipeline.AnalysisInput{
		Text:       c.FormValue("text"),
		TargetRole: c.FormValue("target_role"),
		ResumeID:   c.FormValue("resume_id"),
	}

	if fh, err := c.FormFile("file"); err == nil {
		doc, err := readUpload(fh)
		if err != nil {
			return err
		}
		in.Document = doc
	}

	run, err := s.deps.Analyzer.Run(c.UserContext(), sess, in)
	if err != nil {
		return err
	}

	resp := analysisResponse{
		RunID:    run.ID,
		State:    run.State,
		Analysis: run.Result,
		Resume:   run.Resume,
	}
	if run.Record != nil {
		resp.AnalysisID = run.Record.ID
	}
	if run.PersistErr != nil {
		resp.PersistError = run.PersistErr.Error()
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func readUpload(fh *multipart.FileHeader) (*extract.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "cannot open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
	}

	return &extract.Document{
		Data:     data,
		MIMEType: fh.Header.Get(fiber.HeaderContentType),
		Filename: fh.Filename,
	}, nil
}

func (s *Server) listAnalyses(c *fiber.Ctx) error {
	gateway, userID, err := s.history(c)
	if err != nil {
		return err
	}

	records, err := gateway.ListAnalyses(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"analyses": records})
}

func (s *Server) getAnalysis(c *fiber.Ctx) error {
	gateway, userID, err := s.history(c)
	if err != nil {
		return err
	}

	record, err := gateway.GetAnalysis(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(record)
}

func (s *Server) history(c *fiber.Ctx) (store.Gateway, string, error) {
	if s.deps.Store == nil {
		return nil, "", fiber.NewError(fiber.StatusNotImplemented, "persistence is disabled")
	}
	userID := strings.TrimSpace(c.Get(HeaderUserID))
	if userID == "" {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, HeaderUserID+" header is required")
	}
	return s.deps.Store, userID, nil
}

func (s *Server) matchJobs(c *fiber.Ctx) error {
	var req jobsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	sess := session(c)
	if sess.UserID != "" {
		release, ok := s.acquire(sess.UserID + ":jobs")
		if !ok {
			return ErrBusy
		}
		defer release()
	}

	in := pipeline.MatchInput{
		Preferences: analysis.Preferences{
			TargetRole: req.TargetRole,
			Location:   req.Location,
			Salary:     req.Salary,
		},
		ResumeText: req.ResumeText,
		Count:      req.Count,
	}

	if id := strings.TrimSpace(req.AnalysisID); id != "" {
		gateway, userID, err := s.history(c)
		if err != nil {
			return err
		}
		record, err := gateway.GetAnalysis(c.UserContext(), userID, id)
		if err != nil {
			return err
		}
		var result analysis.Result
		if err := record.DecodeResult(&result); err != nil {
			return fmt.Errorf("decode stored analysis %s: %w", id, err)
		}
		in.Analysis = &result
	}

	run, err := s.deps.Matcher.Run(c.UserContext(), sess, in)
	if err != nil {
		return err
	}

	return c.JSON(jobsResponse{RunID: run.ID, State: run.State, Jobs: run.Jobs})
}
