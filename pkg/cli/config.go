package cli

import (
	"context"

	"github.com/m-mizutani/fennec/pkg/adapter"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/repository"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/tool/analyze"
	"github.com/m-mizutani/fennec/pkg/tool/calc"
	"github.com/m-mizutani/fennec/pkg/tool/search"
	"github.com/m-mizutani/fennec/pkg/tool/web"
	"github.com/m-mizutani/fennec/pkg/usecase/agent"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project             string
	database            string
	sessionsCollection  string
	factsCollection     string
	documentsCollection string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string
	embeddingDim    int64

	// Tool routing
	policyDir string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "sessions-collection",
			Usage:       "Collection holding sessions and their messages",
			Value:       "sessions",
			Sources:     cli.EnvVars("FENNEC_SESSIONS_COLLECTION"),
			Destination: &cfg.sessionsCollection,
		},
		&cli.StringFlag{
			Name:        "facts-collection",
			Usage:       "Collection holding long-term user facts",
			Value:       "facts",
			Sources:     cli.EnvVars("FENNEC_FACTS_COLLECTION"),
			Destination: &cfg.factsCollection,
		},
		&cli.StringFlag{
			Name:        "documents-collection",
			Usage:       "Collection holding the document knowledge base",
			Value:       "documents",
			Sources:     cli.EnvVars("FENNEC_DOCUMENTS_COLLECTION"),
			Destination: &cfg.documentsCollection,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (defaults to --project)",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Model used for tool selection and answers",
			Sources:     cli.EnvVars("FENNEC_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Model used for document and query embeddings",
			Sources:     cli.EnvVars("FENNEC_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dim",
			Usage:       "Embedding dimensionality (must match the vector index)",
			Value:       3072,
			Sources:     cli.EnvVars("FENNEC_EMBEDDING_DIM"),
			Destination: &cfg.embeddingDim,
		},
	}
}

// agentFlags returns flags for agent behavior with destination config
func agentFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego files overriding the default tool routing policy",
			Sources:     cli.EnvVars("FENNEC_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.project == "" {
		return nil, goerr.Wrap(model.ErrConfig, "project is required")
	}
	if cfg.database == "" {
		return nil, goerr.Wrap(model.ErrConfig, "database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database,
		repository.WithCollections(cfg.sessionsCollection, cfg.factsCollection, cfg.documentsCollection))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.Wrap(model.ErrConfig, "gemini-project or project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.Wrap(model.ErrConfig, "gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}
	if cfg.embeddingDim > 0 {
		opts = append(opts, adapter.WithEmbeddingDim(int32(cfg.embeddingDim)))
	}

	gemini, err := adapter.NewGemini(ctx, project, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini adapter")
	}
	return gemini, nil
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context, bucketName string) (adapter.Storage, error) {
	if bucketName == "" {
		return nil, goerr.Wrap(model.ErrConfig, "bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newAgent wires the repository, the Gemini adapter, all tools and the
// routing policy into an orchestrator
func (cfg *config) newAgent(ctx context.Context) (*agent.Agent, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	clients := &tool.Client{Repo: repo, Gemini: gemini}
	registry := tool.New(
		search.NewSemantic(clients),
		search.NewHybrid(clients),
		calc.New(),
		web.New(),
		analyze.New(gemini),
	)

	policy, err := cfg.newPolicy(ctx)
	if err != nil {
		return nil, err
	}

	return agent.New(repo, gemini, registry, agent.WithPolicy(policy)), nil
}

func (cfg *config) newPolicy(ctx context.Context) (*agent.RoutePolicy, error) {
	if cfg.policyDir != "" {
		policy, err := agent.LoadRoutePolicy(ctx, cfg.policyDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load routing policy",
				goerr.V("dir", cfg.policyDir))
		}
		return policy, nil
	}

	policy, err := agent.NewRoutePolicy(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile default routing policy")
	}
	return policy, nil
}
