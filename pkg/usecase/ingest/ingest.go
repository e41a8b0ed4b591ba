package ingest

import (
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/briandowns/spinner"
	"github.com/m-mizutani/fennec/pkg/adapter"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/repository"
	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Ingestor loads documents from the manifest sources, chunks them,
// embeds each chunk and stores the result in the document collection
type Ingestor struct {
	repo    repository.Repository
	gemini  adapter.Gemini
	storage adapter.Storage
	spinner bool
}

type Option func(*Ingestor)

// WithStorage enables object sources backed by a bucket
func WithStorage(st adapter.Storage) Option {
	return func(x *Ingestor) {
		x.storage = st
	}
}

// WithSpinner shows ingestion progress on the terminal
func WithSpinner() Option {
	return func(x *Ingestor) {
		x.spinner = true
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *Ingestor {
	x := &Ingestor{
		repo:   repo,
		gemini: gemini,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Report summarizes one ingestion run
type Report struct {
	Sources int
	Chunks  int
	Skipped bool
}

// Run ingests every source in the manifest. When the document collection
// is already populated the run is skipped unless force is set, so
// repeated runs do not duplicate documents.
func (x *Ingestor) Run(ctx context.Context, manifest *Manifest, force bool) (*Report, error) {
	logger := logging.From(ctx)

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	if !force {
		populated, err := x.repo.HasDocuments(ctx)
		if err != nil {
			return nil, err
		}
		if populated {
			logger.Info("document collection already populated, skipping ingestion")
			return &Report{Skipped: true}, nil
		}
	}

	var sp *spinner.Spinner
	if x.spinner {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Start()
		defer sp.Stop()
	}

	report := &Report{}
	for _, src := range manifest.Sources {
		if sp != nil {
			sp.Suffix = " ingesting " + src.Name()
		}

		docs, err := x.ingestSource(ctx, src, manifest.ChunkSize, manifest.ChunkOverlap)
		if err != nil {
			return nil, err
		}

		if err := x.repo.PutDocuments(ctx, docs); err != nil {
			return nil, err
		}

		logger.Info("ingested source", "source", src.Name(), "chunks", len(docs))
		report.Sources++
		report.Chunks += len(docs)
	}

	return report, nil
}

func (x *Ingestor) ingestSource(ctx context.Context, src *Source, size, overlap int) ([]*model.Document, error) {
	text, err := x.readSource(ctx, src)
	if err != nil {
		return nil, err
	}

	chunks := Split(text, size, overlap)
	if len(chunks) == 0 {
		return nil, goerr.New("source has no content", goerr.V("source", src.Name()))
	}

	docs := make([]*model.Document, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := x.gemini.Embedding(ctx, chunk)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("source", src.Name()), goerr.V("chunk", i))
		}

		docs = append(docs, &model.Document{
			ID:        model.NewDocumentID(),
			Text:      chunk,
			Source:    src.Name(),
			Chunk:     i,
			Embedding: firestore.Vector32(embedding),
			Keywords:  repository.Tokenize(chunk),
		})
	}

	return docs, nil
}

func (x *Ingestor) readSource(ctx context.Context, src *Source) (string, error) {
	if src.Object != "" {
		if x.storage == nil {
			return "", goerr.Wrap(model.ErrConfig, "object source requires a bucket",
				goerr.V("object", src.Object))
		}

		r, err := x.storage.Get(ctx, src.Object)
		if err != nil {
			return "", err
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return "", goerr.Wrap(model.ErrStorage, "failed to read object",
				goerr.V("object", src.Object), goerr.V("error", err))
		}
		return string(data), nil
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read source file", goerr.V("path", src.Path))
	}
	return string(data), nil
}
