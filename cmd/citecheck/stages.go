package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/pipeline"
	"github.com/citecheck/citecheck/internal/provider"
	"github.com/citecheck/citecheck/internal/provider/crossref"
	"github.com/citecheck/citecheck/internal/provider/openalex"
	"github.com/citecheck/citecheck/internal/provider/unpaywall"
	"github.com/citecheck/citecheck/internal/resolve"
	"github.com/citecheck/citecheck/internal/retrieve"
	"github.com/citecheck/citecheck/internal/verify"
)

var runConcurrencyFlag int

// runStages is the shared body of the stage commands: discover the
// workspace, wire the stages the options ask for, and process every TEI
// file given on the command line.
func runStages(cmd *cobra.Command, args []string, opts pipeline.Options) error {
	root := mustFindWorkspace()
	cfg := mustLoadPipeline(root)

	log, err := decision.Open(config.LogPath(root))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	defer log.Close()

	var resolver *resolve.Resolver
	var verifier *verify.Verifier
	var retriever retrieve.Retriever

	if opts.Resolve {
		// Load .env if present (for CITECHECK_MAILTO)
		_ = godotenv.Load()

		providers := []provider.MetadataProvider{
			crossref.NewClient(),
			openalex.NewClient(),
		}
		resolver, err = resolve.New(cfg.Resolver, providers, log)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}

	if opts.Verify {
		prober := verify.NewDOIProber(cfg.Verifier.ProbeTimeout, verify.DOIResolverURL)
		checkers := []provider.OpenAccessChecker{
			openalex.NewClient(),
			unpaywall.NewClient(),
		}
		verifier = verify.New(cfg.Verifier, prober, checkers, log)
	}

	if opts.Retrieve {
		retriever = retrieve.NewFetcher(grobidClient(cmd.Context(), cfg))
	}

	p := pipeline.New(root, cfg, resolver, verifier, retriever, log)
	results, errs := p.RunAll(cmd.Context(), args, opts, runConcurrencyFlag)

	resp := RunResponse{}
	failed := 0
	for i, res := range results {
		if errs[i] != nil {
			failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", args[i], errs[i]))
			continue
		}
		resp.Results = append(resp.Results, res)
	}

	if humanOutput {
		for _, res := range resp.Results {
			printDocumentHuman(res)
		}
		for _, msg := range resp.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
	} else {
		if err := outputJSON(resp); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
	}

	if failed == len(args) {
		os.Exit(ExitDataError)
	}
	return nil
}

// grobidClient returns a client for the configured converter, or nil
// when none is configured or it is unhealthy (retrieval falls back to
// local text extraction). GROBID_URL in the environment overrides the
// workspace config.
func grobidClient(ctx context.Context, cfg *config.Pipeline) *retrieve.GrobidClient {
	url := cfg.Grobid.URL
	if env := os.Getenv("GROBID_URL"); env != "" {
		url = env
	}
	if url == "" {
		return nil
	}
	g := retrieve.NewGrobidClient(url)
	if err := g.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; falling back to local PDF text extraction\n", err)
		return nil
	}
	return g
}
