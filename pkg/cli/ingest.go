package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/fennec/pkg/usecase/ingest"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg          config
		manifestPath string
		bucket       string
		force        bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Usage:       "Path to the YAML ingestion manifest",
			Sources:     cli.EnvVars("FENNEC_MANIFEST"),
			Destination: &manifestPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket for object sources",
			Sources:     cli.EnvVars("FENNEC_BUCKET"),
			Destination: &bucket,
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Ingest even when the document collection is already populated",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Chunk, embed and store the manifest sources",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			manifest, err := ingest.LoadManifest(manifestPath)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			opts := []ingest.Option{ingest.WithSpinner()}
			if bucket != "" {
				storage, err := cfg.newStorage(ctx, bucket)
				if err != nil {
					return err
				}
				opts = append(opts, ingest.WithStorage(storage))
			}

			report, err := ingest.New(repo, gemini, opts...).Run(ctx, manifest, force)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if report.Skipped {
				fmt.Fprintf(w, "Document collection already populated, nothing ingested. Use --force to re-ingest.\n")
				return nil
			}

			fmt.Fprintf(w, "Ingested %d chunks from %d sources\n", report.Chunks, report.Sources)
			fmt.Fprintf(w, "If the vector index does not exist yet, create it with:\n")
			fmt.Fprintf(w, "  gcloud firestore indexes composite create --project=%s --database=%q \\\n", cfg.project, cfg.database)
			fmt.Fprintf(w, "    --collection-group=%s --query-scope=COLLECTION \\\n", cfg.documentsCollection)
			fmt.Fprintf(w, "    --field-config=vector-config='{\"dimension\":%d,\"flat\":{}}',field-path=embedding\n", cfg.embeddingDim)
			return nil
		},
	}
}
