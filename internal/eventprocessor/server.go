package eventprocessor

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/logging"
)

// NewRouter builds the event processor's HTTP surface: the POST /trigger
// intake endpoint that turns a TriggerCommand into a Trigger (resolved
// against the matching template) and hands it to the active event set, and
// GET /logs for recent log records.
func NewRouter(es *EventSet, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
	}))

	r.Post("/trigger", handleTrigger(es, cfg))
	r.Get("/logs", handleLogs)

	return r
}

// handleLogs serves the most recent entries from the process-wide log ring
// buffer, for operators without access to the process's own stdout.
func handleLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if raw := r.URL.Query().Get("last"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logging.GetLogBuffer().GetRecent(n))
}

func handleTrigger(es *EventSet, cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd common.TriggerCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, "invalid trigger command: "+err.Error(), http.StatusBadRequest)
			return
		}
		if cmd.ID == "" {
			http.Error(w, "trigger command requires an id", http.StatusBadRequest)
			return
		}

		tmpl := cfg.Template(cmd.ID)
		trigger := common.TriggerFromDefaultAndCommand(tmpl, cmd, time.Now())
		es.Trigger(trigger)

		w.WriteHeader(http.StatusAccepted)
	}
}
