package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/schollz/gowrangler/internal/acestep"
	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/estimate"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	h, err := s.up.Health(c.UserContext())
	if err != nil {
		return detail(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(h)
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	req := api.DefaultGenerateRequest()
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid request: "+err.Error())
	}

	if req.SrcAudioPath != "" {
		safe, err := s.ensureInTemp(req.SrcAudioPath)
		if err != nil {
			return detail(c, fiber.StatusBadRequest, "source audio: "+err.Error())
		}
		req.SrcAudioPath = safe
	}

	id, err := s.up.ReleaseTask(c.UserContext(), BuildPayload(req))
	if err != nil {
		s.logger.Warn("release task failed", "error", err)
		return detail(c, fiber.StatusBadGateway, "AceStep error: "+err.Error())
	}

	s.store.addPending(id, req)
	s.logger.Info("task released", "task_id", id, "task_type", req.TaskType)
	return c.JSON(api.TaskRef{TaskID: id})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	id := c.Params("task_id")
	task, err := s.up.QueryResult(c.UserContext(), id)
	if err != nil {
		return detail(c, fiber.StatusBadGateway, "AceStep error: "+err.Error())
	}

	out := api.Status{Status: task.Status}
	if task.Status == acestep.StatusDone {
		out.Results = make([]api.Result, len(task.Results))
		for i, r := range task.Results {
			out.Results[i] = api.Result{AudioURL: r.File, Meta: r.Metas}
		}
		s.store.complete(id, out.Results)
	}
	return c.JSON(out)
}

// handleAudio serves local audio files directly, with range support, and
// proxies everything else from the upstream.
func (s *Server) handleAudio(c *fiber.Ctx) error {
	ref := c.Query("path")
	if ref == "" {
		return detail(c, fiber.StatusUnprocessableEntity, "missing path")
	}

	local := acestep.ResolvePath(ref)
	if isAudioFile(local) {
		return c.SendFile(local)
	}

	data, ct, err := s.up.AudioBytes(c.UserContext(), ref)
	if err != nil {
		return detail(c, fiber.StatusBadGateway, "Audio fetch error: "+err.Error())
	}
	c.Set(fiber.HeaderContentType, ct)
	return c.Send(data)
}

var audioExts = map[string]bool{
	".wav": true, ".wave": true, ".mp3": true, ".flac": true, ".ogg": true,
	".aif": true, ".aiff": true, ".m4a": true, ".opus": true,
}

// isAudioFile reports whether path is a regular file with an audio extension.
func isAudioFile(path string) bool {
	if !audioExts[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (s *Server) lookupResult(c *fiber.Ctx) (string, *job, int, bool) {
	id := c.Params("task_id")
	index, err := strconv.Atoi(c.Params("index"))
	j, ok := s.store.job(id)
	if err != nil || !ok || index < 0 || index >= len(j.Results) {
		return "", nil, 0, false
	}
	return id, j, index, true
}

func (s *Server) handleDownloadAudio(c *fiber.Ctx) error {
	id, j, index, ok := s.lookupResult(c)
	if !ok {
		return detail(c, fiber.StatusNotFound, "Result not found")
	}

	data, ct, err := s.up.AudioBytes(c.UserContext(), j.Results[index].AudioURL)
	if err != nil {
		return detail(c, fiber.StatusBadGateway, "Audio fetch error: "+err.Error())
	}
	c.Set(fiber.HeaderContentType, ct)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, api.DownloadName(id, index, j.Format)))
	return c.Send(data)
}

type metaDownload struct {
	GeneratedAt string              `json:"generated_at"`
	Params      api.GenerateRequest `json:"params"`
	Meta        map[string]any      `json:"meta"`
}

func (s *Server) handleDownloadJSON(c *fiber.Ctx) error {
	id, j, index, ok := s.lookupResult(c)
	if !ok {
		return detail(c, fiber.StatusNotFound, "Result not found")
	}

	body, err := json.MarshalIndent(metaDownload{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Params:      j.Params,
		Meta:        j.Results[index].Meta,
	}, "", "  ")
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, api.DownloadName(id, index, "json")))
	return c.Send(body)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "missing file")
	}
	if !strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "audio/") {
		return detail(c, fiber.StatusUnprocessableEntity, "Only audio files are supported")
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ".wav"
	}
	dest := filepath.Join(s.uploadDir, id+ext)
	if err := c.SaveFile(fh, dest); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	name := fh.Filename
	if name == "" {
		name = "audio"
	}
	u := api.Upload{UploadID: id, Path: dest, Filename: name}
	s.store.addUpload(u)
	s.logger.Info("audio uploaded", "upload_id", id, "filename", name, "bytes", fh.Size)
	return c.JSON(u)
}

func (s *Server) handleEstimateDuration(c *fiber.Ctx) error {
	req := api.DurationRequest{TimeSignature: "4/4", LMModel: "1.7b"}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid request: "+err.Error())
	}
	bpm := estimate.DefaultBPM
	if req.BPM != nil && *req.BPM > 0 {
		bpm = *req.BPM
	}

	if req.LMModel != "none" && strings.TrimSpace(req.Lyrics) != "" {
		if secs, ok := s.lmDuration(c, req.Lyrics); ok {
			return c.JSON(api.DurationResponse{Seconds: estimate.Quantize(secs), Method: api.MethodLM})
		}
	}

	resp := api.DurationResponse{
		Seconds: estimate.HeuristicSeconds(req.Lyrics, bpm, req.TimeSignature),
		Method:  api.MethodHeuristic,
	}
	if req.BPM == nil || *req.BPM <= 0 {
		resp.AssumedBPM = estimate.DefaultBPM
	}
	return c.JSON(resp)
}

// lmDuration asks the upstream formatter for a duration. Any failure falls
// back to the heuristic.
func (s *Server) lmDuration(c *fiber.Ctx, lyrics string) (float64, bool) {
	body, err := s.up.FormatInput(c.UserContext(), lyrics)
	if err != nil {
		s.logger.Debug("format_input failed, using heuristic", "error", err)
		return 0, false
	}
	for _, key := range []string{"data", "result"} {
		if inner, ok := body[key].(map[string]any); ok {
			body = inner
			break
		}
	}
	switch v := body["duration"].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func (s *Server) handleEstimateSections(c *fiber.Ctx) error {
	req := api.SectionsRequest{Duration: 30, TimeSignature: "4/4"}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid request: "+err.Error())
	}
	bpm := 0
	if req.BPM != nil {
		bpm = *req.BPM
	}

	out := api.SectionsResponse{Sections: []api.Section{}}
	for _, sec := range estimate.Sections(req.Lyrics, req.Duration, bpm, req.TimeSignature) {
		out.Sections = append(out.Sections, api.Section{Name: sec.Name, Start: sec.Start, End: sec.End, Bars: sec.Bars})
	}
	return c.JSON(out)
}

// ensureInTemp returns a path under the temp dir holding the same audio.
// The upstream rejects absolute source paths outside it, so anything else
// is copied in first.
func (s *Server) ensureInTemp(ref string) (string, error) {
	path := acestep.ResolvePath(ref)
	if within(s.tempDir, path) {
		return path, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".mp3"
	}
	dst, err := os.CreateTemp(s.tempDir, "wrangler_src_*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	s.logger.Debug("copied source audio into temp dir", "from", path, "to", dst.Name())
	return dst.Name(), nil
}

// within reports whether path resolves to somewhere under dir.
func within(dir, path string) bool {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		realDir = filepath.Clean(dir)
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		if real, err = filepath.Abs(path); err != nil {
			return false
		}
	}
	rel, err := filepath.Rel(realDir, real)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
