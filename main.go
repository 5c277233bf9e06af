package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coursechat/agent"
	"coursechat/api"
	"coursechat/config"
	"coursechat/embeddings"
	"coursechat/ingestion"
	"coursechat/llm"
	"coursechat/session"
	"coursechat/store"
	"coursechat/tools"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	docsDir := flags.String("dir", cfg.DocsDir, "path to directory containing course documents")
	rebuild := flags.Bool("rebuild", false, "clear the index before ingesting")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vectorStore, closeStore := mustOpenStore(ctx, cfg, logger)
	defer closeStore()

	neo4jDriver := openNeo4j(ctx, cfg, logger)
	if neo4jDriver != nil {
		defer neo4jDriver.Close(ctx)
	}

	svc := ingestion.NewService(vectorStore, neo4jDriver, logger, cfg.ChunkSize, cfg.ChunkOverlap)
	logger.Printf("ingesting course documents from %s using %s/%s embeddings", *docsDir, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	stats, err := svc.IngestDirectory(ctx, *docsDir, *rebuild)
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
	logger.Printf("ingested %d courses (%d chunks)", stats.Courses, stats.Chunks)
}

func chatCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	question := flags.String("question", "", "question to ask about the course materials")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vectorStore, closeStore := mustOpenStore(ctx, cfg, logger)
	defer closeStore()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	sessions := session.NewManager(cfg.MaxHistory)
	svc := agent.NewService(vectorStore, llmClient, sessions, logger)
	sessionID := sessions.Create()

	if strings.TrimSpace(*question) != "" {
		answer, sources, err := svc.Query(ctx, *question, sessionID)
		if err != nil {
			logger.Fatalf("query failed: %v", err)
		}
		printAnswer(answer, sources)
		return
	}

	fmt.Println("Ask about the course materials (empty line to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		answer, sources, err := svc.Query(ctx, line, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Printf("query failed: %v", err)
			continue
		}
		printAnswer(answer, sources)
	}
	if err := scanner.Err(); err != nil {
		logger.Fatalf("read question: %v", err)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "listen address for the HTTP API")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vectorStore, closeStore := mustOpenStore(ctx, cfg, logger)
	defer closeStore()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	neo4jDriver := openNeo4j(ctx, cfg, logger)
	if neo4jDriver != nil {
		defer neo4jDriver.Close(ctx)
	}

	sessions := session.NewManager(cfg.MaxHistory)
	svc := agent.NewService(vectorStore, llmClient, sessions, logger)
	server := &http.Server{
		Addr:    *addr,
		Handler: api.New(svc, neo4jDriver, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("serving on %s", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete all indexed course data. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vectorStore, closeStore := mustOpenStore(ctx, cfg, logger)
	defer closeStore()

	if err := vectorStore.Clear(ctx); err != nil {
		logger.Fatalf("clear index: %v", err)
	}
	logger.Println("course index cleared")
}

func mustOpenStore(ctx context.Context, cfg config.Config, logger *log.Logger) (store.Store, func()) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	vectorStore, err := store.New(ctx, cfg, embedder)
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.Store.Backend, err)
	}
	return vectorStore, func() { vectorStore.Close() }
}

// openNeo4j returns nil when no graph database is configured. The knowledge
// graph is an optional sidecar to the vector index.
func openNeo4j(ctx context.Context, cfg config.Config, logger *log.Logger) neo4j.DriverWithContext {
	if cfg.Neo4jURI == "" {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		logger.Fatalf("neo4j connection: %v", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		logger.Fatalf("neo4j connectivity: %v", err)
	}
	return driver
}

func printAnswer(answer string, sources []tools.Source) {
	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range sources {
			if source.URL != "" {
				fmt.Printf("%d. %s (%s)\n", idx+1, source.Label, source.URL)
			} else {
				fmt.Printf("%d. %s\n", idx+1, source.Label)
			}
		}
	}
}

func printUsage() {
	fmt.Println("Usage: coursechat <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Index course documents from a directory (use --dir to override, --rebuild to start fresh)")
	fmt.Println("  chat     Ask a question about the indexed courses (interactive without --question)")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  clear    Remove all indexed course data")
}
