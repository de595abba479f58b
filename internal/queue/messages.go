package queue

import (
	"errors"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/pipeline"
)

// RunRequest asks the worker to build the graph of one document. The input
// is either inline or an object key holding a pipeline.Input JSON document.
type RunRequest struct {
	RunID      string          `json:"run_id,omitempty"`
	DocumentID string          `json:"document_id"`
	Tags       common.Tags     `json:"tags,omitempty"`
	InputKey   string          `json:"input_key,omitempty"`
	Input      *pipeline.Input `json:"input,omitempty"`
}

func (r RunRequest) Validate() error {
	switch {
	case r.DocumentID == "":
		return errors.New("document_id is required")
	case r.InputKey == "" && r.Input == nil:
		return errors.New("either input_key or input is required")
	case r.InputKey != "" && r.Input != nil:
		return errors.New("input_key and input are mutually exclusive")
	}
	return nil
}

// RunResultMsg is published to the results queue after every run.
type RunResultMsg struct {
	RunID      string            `json:"run_id"`
	DocumentID string            `json:"document_id"`
	Tags       common.Tags       `json:"tags,omitempty"`
	Success    bool              `json:"success"`
	State      pipeline.Stage    `json:"state"`
	Summary    pipeline.Summary  `json:"summary"`
	Grade      string            `json:"grade,omitempty"`
	ReportKey  string            `json:"report_key,omitempty"`
	Failure    *pipeline.Failure `json:"failure,omitempty"`
}
