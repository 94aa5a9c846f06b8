package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"guildboard/internal/config"
	"guildboard/internal/db"
	"guildboard/internal/guild"
	"guildboard/internal/httpmw"
	"guildboard/internal/task"
	"guildboard/internal/template"
	"guildboard/internal/user"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger
}

// NewHandler wires storage, the board service, and every route into one
// http.Handler wrapped in the standard middleware chain.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	taskRepo, userRepo, templateRepo, err := openStores(opts.Config)
	if err != nil {
		return nil, err
	}

	rewards := guild.Rewards{
		Guild:  opts.Config.Rewards.GuildReputation,
		Member: opts.Config.Rewards.MemberReputation,
	}
	svc := guild.NewService(taskRepo, userRepo, rewards, opts.Logger)

	guildHandler := guild.NewHandler(svc)
	userHandler := user.NewHandler(userRepo)
	templateHandler := template.NewHandler(templateRepo, svc)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "guildboard",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
	})

	mux.HandleFunc("/api/tasks", guildHandler.TasksRoot)
	mux.HandleFunc("/api/tasks/", guildHandler.TasksSub)
	mux.HandleFunc("/api/users", userHandler.UsersRoot)
	mux.HandleFunc("/api/users/", userHandler.UsersSub)
	mux.HandleFunc("/api/templates", templateHandler.TemplatesRoot)
	mux.HandleFunc("/api/templates/", templateHandler.TemplatesSub)

	handler := httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRecover(opts.Logger),
	)
	return handler, nil
}

func openStores(cfg *config.Config) (task.Repo, user.Repo, template.Repo, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "sqlite":
		handle, err := db.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		// Templates stay file-backed: they are few, rarely written, and
		// have no counters needing atomic updates.
		templateRepo, err := template.NewFileRepo(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return task.NewSQLRepo(handle), user.NewSQLRepo(handle), templateRepo, nil

	case "file", "":
		taskRepo, err := task.NewFileRepo(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		userRepo, err := user.NewFileRepo(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		templateRepo, err := template.NewFileRepo(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return taskRepo, userRepo, templateRepo, nil

	default:
		return nil, nil, nil, errors.New("unknown storage backend " + cfg.Storage.Backend)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
