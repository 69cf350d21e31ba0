package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/campusmod/modwatch/internal/config"
	"github.com/campusmod/modwatch/internal/scheduler"
	"github.com/campusmod/modwatch/internal/staging"
	"github.com/campusmod/modwatch/internal/store"
	"github.com/campusmod/modwatch/pkg/analytics"
	"github.com/campusmod/modwatch/pkg/incident"
	"github.com/campusmod/modwatch/pkg/notify"
	"github.com/campusmod/modwatch/pkg/server"
	"github.com/campusmod/modwatch/pkg/source"
	"github.com/campusmod/modwatch/pkg/uploader"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildSources(cfg *config.Config) []source.Source {
	var sources []source.Source

	if cfg.Source.Discussion.Enabled && cfg.Source.Discussion.BaseURL != "" {
		sources = append(sources, source.NewDiscussion(
			cfg.Source.Discussion.BaseURL,
			cfg.Source.Discussion.Token,
			cfg.Source.Discussion.Topics,
			cfg.Source.Discussion.RPS,
		))
	}
	if cfg.Source.Feeds.Enabled {
		feeds := make([]source.Feed, len(cfg.Source.Feeds.Feeds))
		for i, f := range cfg.Source.Feeds.Feeds {
			feeds[i] = source.Feed{Name: f.Name, URL: f.URL}
		}
		sources = append(sources, source.NewFeeds(feeds))
	}

	return sources
}

func buildNotifyManager(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.Slack.WebhookURL))
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

func runFetch() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stager := staging.NewStager(
		staging.NewFileStaging(cfg.Staging.Path),
		buildSources(cfg),
	)

	added, err := stager.Run(context.Background())
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	fmt.Fprintf(os.Stderr, "staged %d new records\n", added)
	return nil
}

func runUpload() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	up := uploader.New(
		staging.NewFileStaging(cfg.Staging.Path),
		db,
		cfg.Reports.Path,
		incident.Automated,
	)

	if _, err := up.Run(context.Background()); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func runIncidents(jsonOutput bool, status, severity string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	incidents, err := db.ListIncidents(context.Background(), incident.ListOpts{
		Status:   incident.Status(status),
		Severity: incident.Severity(severity),
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("list incidents: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(incidents)
	}

	if len(incidents) == 0 {
		fmt.Println("no incidents found (try uploading first: modwatch upload)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tSTATUS\tAUTHOR\tCONTENT\tTIMESTAMP")
	for _, inc := range incidents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\t%s\n",
			inc.ID, inc.Severity, inc.Status, inc.AuthorID,
			inc.ContentType, inc.ContentID,
			inc.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := server.New(
		incident.NewService(db),
		analytics.New(db),
		notify.NewCenter(),
		nil, nil,
		port,
	)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	stager := staging.NewStager(
		staging.NewFileStaging(cfg.Staging.Path),
		buildSources(cfg),
	)
	up := uploader.New(
		staging.NewFileStaging(cfg.Staging.Path),
		db,
		cfg.Reports.Path,
		incident.Automated,
	)

	service := incident.NewService(db)
	center := notify.NewCenter()
	notifyMgr := buildNotifyManager(cfg)

	fetchJob := scheduler.NewJob("fetch", cfg.Schedule.ParseFetchInterval(), func(ctx context.Context) error {
		added, err := stager.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  staged %d new records\n", added)
		return nil
	})

	uploadJob := scheduler.NewJob("upload", cfg.Schedule.ParseUploadInterval(), func(ctx context.Context) error {
		_, err := up.Run(ctx)
		return err
	})

	pollLimit := cfg.Notify.PollLimit
	if pollLimit <= 0 {
		pollLimit = 1000
	}
	notifyJob := scheduler.NewJob("notify", cfg.Schedule.ParseNotifyInterval(), func(ctx context.Context) error {
		incidents, err := service.List(ctx, incident.ListOpts{Limit: pollLimit})
		if err != nil {
			return err
		}
		batch := center.Poll(incidents)
		if n := notify.FromBatch(batch); n != nil && notifyMgr.HasNotifiers() {
			if err := notifyMgr.Broadcast(ctx, n); err != nil {
				fmt.Fprintf(os.Stderr, "  notify error: %v\n", err)
			}
		}
		return nil
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(fetchJob, uploadJob, notifyJob)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := server.New(service, analytics.New(db), center, fetchJob, uploadJob, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
