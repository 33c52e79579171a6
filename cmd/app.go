package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/enroll"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/model"
	"github.com/kozaktomas/facegate/internal/recognize"
	"github.com/kozaktomas/facegate/internal/store/postgres"
)

// app bundles the wired components shared by the CLI commands. Every
// command that touches the database goes through newApp so connection
// setup, migrations and model loading happen in one place.
type app struct {
	cfg        *config.Config
	pool       *postgres.Pool
	face       *faceapi.Client
	identities *postgres.IdentityRepository
	samples    *postgres.SampleRepository
	events     *postgres.EventRepository
	models     *model.Manager
	match      *matcher.HNSWMatcher
	enroll     *enroll.Orchestrator
	recognize  *recognize.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	identities := postgres.NewIdentityRepository(pool)
	samples := postgres.NewSampleRepository(pool)
	events := postgres.NewEventRepository(pool)

	match := matcher.NewHNSWMatcher()
	models := model.NewManager(samples, match, cfg.Model.Path)

	a := &app{
		cfg:        cfg,
		pool:       pool,
		face:       faceapi.NewClient(cfg.FaceService.URL, cfg.Detector.ScaleFactor, cfg.Detector.MinNeighbors),
		identities: identities,
		samples:    samples,
		events:     events,
		models:     models,
		match:      match,
	}
	a.enroll = enroll.New(identities, samples, events, models, match,
		cfg.Enrollment.MinSamples, cfg.Recognition.DuplicateThreshold)
	a.recognize = recognize.New(identities, events, models, match,
		cfg.Recognition.IdentificationThreshold)
	return a, nil
}

// loadModel restores the persisted model artifact. A missing blob is
// fine for commands that can run without one.
func (a *app) loadModel() error {
	if err := a.models.LoadFromDisk(); err != nil {
		return fmt.Errorf("loading model from %s: %w", a.cfg.Model.Path, err)
	}
	return nil
}

func (a *app) Close() {
	a.pool.Close()
}
