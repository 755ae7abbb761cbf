package server

import (
	"sync"

	"github.com/schollz/gowrangler/internal/api"
)

// job is a finished task kept for downloads.
type job struct {
	Results []api.Result
	Params  api.GenerateRequest
	Format  string
}

// store is the in-process job table. It does not survive a restart.
type store struct {
	mu      sync.Mutex
	pending map[string]api.GenerateRequest
	jobs    map[string]*job
	uploads map[string]api.Upload
}

func newStore() *store {
	return &store{
		pending: make(map[string]api.GenerateRequest),
		jobs:    make(map[string]*job),
		uploads: make(map[string]api.Upload),
	}
}

func (s *store) addPending(taskID string, req api.GenerateRequest) {
	s.mu.Lock()
	s.pending[taskID] = req
	s.mu.Unlock()
}

// complete moves a task from pending to done. Later calls for the same
// task are ignored. Tasks submitted before a restart get empty params.
func (s *store) complete(taskID string, results []api.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[taskID]; ok {
		return
	}
	params, ok := s.pending[taskID]
	delete(s.pending, taskID)
	format := params.AudioFormat
	if !ok || format == "" {
		format = "mp3"
	}
	s.jobs[taskID] = &job{Results: results, Params: params, Format: format}
}

func (s *store) job(taskID string) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[taskID]
	return j, ok
}

func (s *store) addUpload(u api.Upload) {
	s.mu.Lock()
	s.uploads[u.UploadID] = u
	s.mu.Unlock()
}
