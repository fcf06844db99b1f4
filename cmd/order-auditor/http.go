package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func runAuditorHTTPServer(ctx context.Context, opts auditorOpts, st journalStore) error {
	httpAddr := opts.httpAddr
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	lis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		counts, err := st.CountByType(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"journal unavailable"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"events": counts})
	})

	r.Get("/orders/{orderID}/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad order id"}`))
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		evs, err := st.ListOrderEvents(r.Context(), id, limit, offset)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"journal unavailable"}`))
			return
		}

		out := make([]map[string]any, 0, len(evs))
		for _, e := range evs {
			item := map[string]any{
				"id":          e.ID,
				"orderId":     e.OrderID,
				"orderNumber": e.OrderNumber,
				"eventType":   e.EventType,
				"status":      e.Status,
				"actorRole":   e.ActorRole,
				"occurredAt":  e.OccurredAt,
			}
			if e.ConfirmedAt != nil {
				item["confirmedAt"] = *e.ConfirmedAt
			}
			out = append(out, item)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"events": out})
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
