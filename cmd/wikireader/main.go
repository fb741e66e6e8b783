package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/wikireader/pkg/analysis"
	"github.com/japaniel/wikireader/pkg/api"
	"github.com/japaniel/wikireader/pkg/config"
	"github.com/japaniel/wikireader/pkg/db"
	"github.com/japaniel/wikireader/pkg/enrich"
	"github.com/japaniel/wikireader/pkg/lexicon"
	"github.com/japaniel/wikireader/pkg/logging"
	"github.com/japaniel/wikireader/pkg/wiki"
)

func main() {
	configFlag := flag.String("config", "", "Path to YAML config file (default $WIKIREADER_CONFIG)")
	dbFlag := flag.String("db", "", "Database URL or SQLite path (overrides config)")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	apiFlag := flag.String("api-url", "", "MediaWiki api.php endpoint (overrides config)")
	titleFlag := flag.String("title", "", "Analyze one article and print a report instead of serving")
	saveFlag := flag.Bool("save", false, "With -title, store the analysis")
	userFlag := flag.Int64("user", 0, "With -save, owner user id")
	notesFlag := flag.String("notes", "", "With -save, personal notes")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbFlag != "" {
		cfg.Database.URL = *dbFlag
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *apiFlag != "" {
		cfg.Wikipedia.APIURL = *apiFlag
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up analysis", "err", err)
	}

	if *titleFlag != "" {
		if *saveFlag && *userFlag == 0 {
			logger.Fatal("-save needs -user")
		}
		var notes *string
		if *notesFlag != "" {
			notes = notesFlag
		}
		if err := analyzeOne(ctx, os.Stdout, cfg, svc, *titleFlag, *saveFlag, *userFlag, notes); err != nil {
			logger.Fatal("Analysis failed", "title", *titleFlag, "err", err)
		}
		return
	}

	if err := serve(ctx, cfg, svc, logger); err != nil {
		logger.Fatal("Server failed", "err", err)
	}
}

func newService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*enrich.Service, error) {
	lex := lexicon.Default()
	if path := cfg.Analysis.LexiconPath; path != "" {
		if err := lexicon.EnsureLexicon(ctx, path, cfg.Analysis.LexiconURL); err != nil {
			return nil, err
		}
		var err error
		if lex, err = lexicon.Load(path); err != nil {
			return nil, err
		}
		logger.Info("Loaded sentiment lexicon", "path", path, "words", lex.Len())
	}

	client := wiki.NewClient(wiki.Options{
		BaseURL:           cfg.Wikipedia.APIURL,
		UserAgent:         cfg.Wikipedia.UserAgent,
		Timeout:           cfg.Wikipedia.Timeout,
		RequestsPerSecond: cfg.Wikipedia.RequestsPerSecond,
		Logger:            logger.WithPrefix("wiki"),
	})
	svc := enrich.NewService(client, analysis.NewAnalyzer(lex))
	svc.Concurrency = cfg.Wikipedia.SearchConcurrency
	svc.Logger = logger.WithPrefix("enrich")
	return svc, nil
}

func analyzeOne(ctx context.Context, out io.Writer, cfg *config.Config, svc *enrich.Service, title string, save bool, userID int64, notes *string) error {
	fmt.Fprintf(out, "Fetching %s...\n", title)
	art, err := svc.GetArticleDetails(ctx, title)
	var dis *enrich.DisambiguationError
	if errors.As(err, &dis) {
		return fmt.Errorf("%q is ambiguous, try one of: %s", title, strings.Join(dis.Suggestions, "; "))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Title: %s\n", art.Title)
	fmt.Fprintf(out, "URL: %s\n", art.URL)
	fmt.Fprintf(out, "Words: %d\n", art.WordCount)
	fmt.Fprintf(out, "References: %d\n", len(art.References))
	fmt.Fprintf(out, "Sentiment: %s (polarity %.3f, subjectivity %.3f)\n",
		art.SentimentLabel, art.SentimentPolarity, art.SentimentSubjectivity)
	fmt.Fprintln(out, "Frequent words:")
	for _, fw := range art.FrequentWords {
		fmt.Fprintf(out, "  %-20s %d\n", fw.Word, fw.Count)
	}

	if !save {
		return nil
	}
	store, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	polarity, subjectivity := art.SentimentPolarity, art.SentimentSubjectivity
	stored, err := store.CreateArticle(ctx, db.NewArticle{
		WikipediaTitle:        art.Title,
		WikipediaURL:          art.URL,
		ProcessedSummary:      art.Summary,
		WordCount:             art.WordCount,
		FrequentWords:         art.FrequentWords,
		SentimentPolarity:     &polarity,
		SentimentSubjectivity: &subjectivity,
		UserID:                userID,
		PersonalNotes:         notes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Article saved with ID: %d\n", stored.ID)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, svc *enrich.Service, logger *log.Logger) error {
	store, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Database ready", "dialect", store.Dialect(), "schema", db.SchemaVersion())

	handler := api.NewServer(svc, store, api.Options{
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.WithPrefix("http"),
	}).Handler()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
