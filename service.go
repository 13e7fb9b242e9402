// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package recall

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/contextbuild"
	"github.com/poiesic/recall/embedjob"
	"github.com/poiesic/recall/ingest"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/postgres"
)

// Service wires a record store, a profile store and an embedding provider
// into one handle, and acts as a factory for the pipeline components built
// on top of them.
type Service struct {
	backend  *badger.Backend
	records  storage.RecordStore
	profiles storage.ProfileStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig *ai.Config
	embedder ai.Embedder
}

// WithAIConfig sets the embedding provider configuration used when the
// Service constructs its own embedder.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = cfg
	}
}

// WithEmbedder supplies a pre-built embedder, bypassing provider
// construction entirely. Intended for tests and callers that manage their
// own provider lifecycle.
func WithEmbedder(embedder ai.Embedder) ServiceOption {
	return func(o *serviceOptions) {
		o.embedder = embedder
	}
}

// NewService opens a BadgerDB-backed Service rooted at filePath. The
// directory is created if it does not exist.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := applyOptions(opts)

	embedder, err := buildEmbedder(options)
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	records, err := badger.NewRecordStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:  backend,
		records:  records,
		profiles: badger.NewProfileStore(backend),
		embedder: embedder,
		logger:   slog.Default(),
	}, nil
}

// NewPostgresService opens a Postgres-backed Service. The schema is
// migrated on open, sized to the embedder's dimensionality.
func NewPostgresService(ctx context.Context, dsn string, opts ...ServiceOption) (*Service, error) {
	options := applyOptions(opts)

	embedder, err := buildEmbedder(options)
	if err != nil {
		return nil, err
	}

	store, err := postgres.NewStore(ctx, dsn, embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	return &Service{
		records:  store,
		profiles: store,
		embedder: embedder,
		logger:   slog.Default(),
	}, nil
}

func applyOptions(opts []ServiceOption) *serviceOptions {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func buildEmbedder(options *serviceOptions) (ai.Embedder, error) {
	if options.embedder != nil {
		return options.embedder, nil
	}
	if err := options.aiConfig.Validate(); err != nil {
		return nil, err
	}
	return openai.NewEmbedder(options.aiConfig)
}

func (s *Service) Close() error {
	if err := s.records.Close(); err != nil {
		s.logger.Error("error closing record store", "err", err)
		return err
	}
	// The Postgres store owns its pool and closed it above; only the
	// badger path carries a separate backend.
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

func (s *Service) RecordStore() storage.RecordStore {
	return s.records
}

func (s *Service) ProfileStore() storage.ProfileStore {
	return s.profiles
}

func (s *Service) Embedder() ai.Embedder {
	return s.embedder
}

// NewRecorder creates an ingestion recorder over the service's record
// store.
func (s *Service) NewRecorder() (*ingest.Recorder, error) {
	return ingest.NewRecorder(s.records, s.logger)
}

// NewRunner creates a batch embedding runner. A nil config uses the
// defaults; progress may be nil to discard progress output.
func (s *Service) NewRunner(config *embedjob.Config, progress io.Writer) *embedjob.Runner {
	return embedjob.NewRunner(s.records, s.embedder, config, progress)
}

// NewEngine creates a similarity search engine. The caller owns the
// engine and must Close it to release its scoring pool.
func (s *Service) NewEngine(opts ...search.Option) (*search.Engine, error) {
	return search.NewEngine(s.records, s.embedder, opts...)
}

// NewBuilder creates a context builder over the given engine and the
// service's stores.
func (s *Service) NewBuilder(engine *search.Engine, opts ...contextbuild.Option) (*contextbuild.Builder, error) {
	return contextbuild.NewBuilder(engine, s.records, s.profiles, opts...)
}
