package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"heredity/internal/blob"
	"heredity/internal/codec"
	"heredity/internal/domain"
	"heredity/internal/inference"
	"heredity/internal/repository"
)

// ErrInvalidInput marks requests rejected before reaching the engine
var ErrInvalidInput = errors.New("invalid input")

// Options configures an InferenceService
type Options struct {
	// Reports archives JSON reports after each run. nil disables archiving.
	Reports blob.Store

	// Timeout bounds a single inference run. 0 means no limit.
	Timeout time.Duration

	Logger logrus.FieldLogger
}

// InferenceService provides business logic for pedigrees and inference runs
type InferenceService struct {
	repo     repository.Repository
	engine   *inference.Engine
	eventBus *EventBus
	reports  blob.Store
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewInferenceService creates a new inference service
func NewInferenceService(repo repository.Repository, engine *inference.Engine, eventBus *EventBus, opts Options) *InferenceService {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InferenceService{
		repo:     repo,
		engine:   engine,
		eventBus: eventBus,
		reports:  opts.Reports,
		timeout:  opts.Timeout,
		log:      log.WithField("component", "service"),
		now:      time.Now,
	}
}

// ImportPedigree parses data in the given format and stores it as a new pedigree
func (s *InferenceService) ImportPedigree(ctx context.Context, name, format string, data []byte) (*domain.Pedigree, error) {
	people, err := s.parse(format, data)
	if err != nil {
		return nil, err
	}
	return s.StorePedigree(ctx, uuid.NewString(), name, people)
}

// StorePedigree validates people and saves them under id, replacing any
// pedigree already stored there
func (s *InferenceService) StorePedigree(ctx context.Context, id, name string, people []domain.Individual) (*domain.Pedigree, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: pedigree name required", ErrInvalidInput)
	}
	if len(people) == 0 {
		return nil, fmt.Errorf("%w: pedigree has no individuals", ErrInvalidInput)
	}
	if err := domain.NewFamilyGraph(people).Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Pedigree{
		ID:          id,
		Name:        name,
		Individuals: people,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.SavePedigree(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save pedigree: %w", err)
	}

	s.log.WithFields(logrus.Fields{"pedigree": id, "individuals": len(people)}).Info("Pedigree imported")
	s.eventBus.Publish(Event{
		Type:    EventPedigreeImported,
		Payload: map[string]any{"pedigree_id": id, "name": name, "individuals": len(people)},
	})

	return p, nil
}

func (s *InferenceService) parse(format string, data []byte) ([]domain.Individual, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	people, err := c.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidInput, c.Format(), err)
	}
	return people, nil
}

// GetPedigree retrieves a stored pedigree
func (s *InferenceService) GetPedigree(ctx context.Context, id string) (*domain.Pedigree, error) {
	return s.repo.GetPedigree(ctx, id)
}

// ListPedigrees returns summaries of all stored pedigrees
func (s *InferenceService) ListPedigrees(ctx context.Context) ([]domain.PedigreeSummary, error) {
	return s.repo.ListPedigrees(ctx)
}

// DeletePedigree removes a pedigree and its run. Archived reports are kept.
func (s *InferenceService) DeletePedigree(ctx context.Context, id string) error {
	if err := s.repo.DeletePedigree(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventPedigreeDeleted,
		Payload: map[string]string{"pedigree_id": id},
	})

	return nil
}

// RunInference computes posteriors for a stored pedigree, records the run
// and archives its report
func (s *InferenceService) RunInference(ctx context.Context, id string) (*domain.InferenceRun, error) {
	p, err := s.repo.GetPedigree(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.engine.Infer(ctx, p.Graph())
	if err != nil {
		s.inferenceFailed(id, err)
		return nil, fmt.Errorf("inference on %s: %w", id, err)
	}

	run := res.Run(id, s.now().UTC())
	run.Version = p.Version
	if err := s.repo.SaveRun(ctx, run); err != nil {
		if errors.Is(err, repository.ErrStaleRun) {
			s.inferenceFailed(id, err)
		}
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	s.archive(ctx, run)

	s.log.WithFields(logrus.Fields{
		"pedigree": id,
		"worlds":   run.Worlds,
		"elapsed":  run.Elapsed,
	}).Info("Inference completed")
	s.eventBus.Publish(Event{
		Type: EventInferenceCompleted,
		Payload: map[string]any{
			"pedigree_id": id,
			"worlds":      run.Worlds,
			"elapsed_ms":  float64(run.Elapsed.Microseconds()) / 1000,
		},
	})

	return run, nil
}

func (s *InferenceService) inferenceFailed(id string, err error) {
	s.log.WithError(err).WithField("pedigree", id).Warn("Inference failed")
	s.eventBus.Publish(Event{
		Type:    EventInferenceFailed,
		Payload: map[string]string{"pedigree_id": id, "error": err.Error()},
	})
}

// archive stores the run's JSON report. Failures are logged, not returned:
// the run is already saved.
func (s *InferenceService) archive(ctx context.Context, run *domain.InferenceRun) {
	if s.reports == nil {
		return
	}

	var buf bytes.Buffer
	if err := codec.WriteJSON(&buf, run); err != nil {
		s.log.WithError(err).Warn("Failed to encode report")
		return
	}

	key := blob.ReportKey(run.PedigreeID, run.CompletedAt)
	if _, err := s.reports.Put(ctx, key, bytes.NewReader(buf.Bytes()), "application/json"); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to archive report")
		return
	}
	s.log.WithFields(logrus.Fields{"key": key, "driver": s.reports.Driver()}).Debug("Report archived")
}

// GetRun returns the latest inference run of a pedigree
func (s *InferenceService) GetRun(ctx context.Context, id string) (*domain.InferenceRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListReports lists the archived reports of a pedigree, oldest first
func (s *InferenceService) ListReports(ctx context.Context, id string) ([]blob.Info, error) {
	if s.reports == nil {
		return []blob.Info{}, nil
	}
	infos, err := s.reports.List(ctx, blob.ReportPrefix(id))
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []blob.Info{}
	}
	return infos, nil
}
