package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/lexgraph/internal/storage"
	"github.com/OFFIS-RIT/lexgraph/pkg/leaselock"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/pipeline"
)

// Runner executes construction runs; *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) pipeline.Result
}

// Processor turns RunRequest messages into pipeline runs.
type Processor struct {
	Runner Runner
	Leases *leaselock.Client
	// Objects is optional. Without it requests must carry inline input and
	// no reports are stored.
	Objects      storage.ObjectStore
	Publisher    Publisher
	ResultsQueue string
	LeaseOptions leaselock.Options
	RunTimeout   time.Duration
}

// ProcessRunMessage handles one RunRequest body. A nil return means the
// message is done, including runs that failed for good; a returned error
// asks for a retry unless it wraps ErrPermanent.
func (p *Processor) ProcessRunMessage(ctx context.Context, body []byte) error {
	var req RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("%w: failed to decode run request: %v", ErrPermanent, err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: invalid run request: %v", ErrPermanent, err)
	}

	in, err := p.loadInput(ctx, req)
	if err != nil {
		return err
	}

	opts := p.LeaseOptions
	opts.RunID = in.RunID
	var res pipeline.Result
	err = p.Leases.WithLease(ctx, leaselock.DocumentKey(req.DocumentID), opts, func(ctx context.Context) error {
		if p.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.RunTimeout)
			defer cancel()
		}
		res = p.Runner.Run(ctx, in)
		return nil
	})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			return fmt.Errorf("document %s is being processed by another run: %w", req.DocumentID, err)
		}
		return fmt.Errorf("failed to run under lease: %w", err)
	}

	if !res.Success && res.Failure != nil && res.Failure.Retryable {
		return fmt.Errorf("run %s failed: %w", res.Summary.RunID, res.Failure)
	}

	msg := RunResultMsg{
		RunID:      res.Summary.RunID,
		DocumentID: req.DocumentID,
		Tags:       in.Tags,
		Success:    res.Success,
		State:      res.State,
		Summary:    res.Summary,
		Grade:      res.Quality.Grade,
		Failure:    res.Failure,
	}
	if p.Objects != nil {
		key := storage.ReportKey(req.DocumentID, res.Summary.RunID)
		if err := storage.PutJSON(ctx, p.Objects, key, res); err != nil {
			logger.Warn("[Queue] Failed to store run report", "run_id", res.Summary.RunID, "key", key, "err", err)
		} else {
			msg.ReportKey = key
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}
	if err := PublishFIFO(ctx, p.Publisher, p.ResultsQueue, data, nil); err != nil {
		return err
	}

	logger.Info("[Queue] Run processed", "run_id", msg.RunID, "document_id", msg.DocumentID, "success", msg.Success, "state", msg.State)
	return nil
}

// loadInput resolves the request into a pipeline input. Request level
// fields win over the ones stored with the input.
func (p *Processor) loadInput(ctx context.Context, req RunRequest) (pipeline.Input, error) {
	var in pipeline.Input
	switch {
	case req.Input != nil:
		in = *req.Input
	case p.Objects == nil:
		return in, fmt.Errorf("%w: input_key %s given but no object storage is configured", ErrPermanent, req.InputKey)
	default:
		if err := storage.GetJSON(ctx, p.Objects, req.InputKey, &in); err != nil {
			if errors.Is(err, storage.ErrNoSuchKey) {
				return in, fmt.Errorf("%w: %v", ErrPermanent, err)
			}
			return in, fmt.Errorf("failed to load run input: %w", err)
		}
	}

	in.DocumentID = req.DocumentID
	if req.RunID != "" {
		in.RunID = req.RunID
	}
	if len(req.Tags) > 0 {
		in.Tags = req.Tags
	}
	return in, nil
}
