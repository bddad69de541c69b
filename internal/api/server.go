// Package api provides the read-only HTTP surface over a running
// simulation plus the websocket digest stream. State reads synchronise with
// the scheduler through a shared tick gate, honouring the rule that nothing
// reads the arena while a tick is mutating it.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/grandsim/internal/engine"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim   *engine.Simulation
	Clock *engine.Clock
	Hub   *Hub
	Port  int

	// TickGate is held by the scheduler during each tick; handlers take it
	// to read a quiescent arena.
	TickGate *sync.Mutex
}

// Start begins serving in a goroutine and wires the digest stream.
func (s *Server) Start() {
	limiter := NewRateLimiter(600, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", RateLimitMiddleware(limiter, s.handleStatus))
	mux.HandleFunc("GET /api/v1/goods", RateLimitMiddleware(limiter, s.handleGoods))
	mux.HandleFunc("GET /api/v1/goods/{id}/history", RateLimitMiddleware(limiter, s.handleGoodHistory))
	mux.HandleFunc("GET /api/v1/countries", RateLimitMiddleware(limiter, s.handleCountries))
	mux.HandleFunc("GET /api/v1/countries/{tag}", RateLimitMiddleware(limiter, s.handleCountry))
	mux.HandleFunc("GET /api/v1/provinces/{id}", RateLimitMiddleware(limiter, s.handleProvince))
	mux.HandleFunc("POST /api/v1/clock/speed", s.handleClockSpeed)
	mux.HandleFunc("POST /api/v1/clock/pause", s.handleClockPause)
	mux.HandleFunc("/ws", s.Hub.ServeWs)

	go s.Hub.Run()
	go func() {
		addr := fmt.Sprintf(":%d", s.Port)
		slog.Info("api server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("api server stopped", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func pointString(p fixed.Point) string { return p.String() }

func (s *Server) locked(fn func()) {
	s.TickGate.Lock()
	defer s.TickGate.Unlock()
	fn()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	s.locked(func() {
		d := s.Sim.LastDigest()
		payload = map[string]any{
			"date":             s.Sim.Date.String(),
			"paused":           s.Clock.Paused(),
			"speed":            s.Clock.Speed(),
			"total_population": d.TotalPopulation,
			"prices_changed":   len(d.PricesChanged),
			"events_fired":     d.EventsFired,
		}
	})
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGoods(w http.ResponseWriter, r *http.Request) {
	type goodView struct {
		ID        string `json:"id"`
		Category  string `json:"category"`
		Price     string `json:"price"`
		Change    string `json:"change"`
		Demand    string `json:"demand"`
		Supply    string `json:"supply"`
		Available bool   `json:"available"`
	}
	var views []goodView
	s.locked(func() {
		for i := 0; i < s.Sim.Market.Len(); i++ {
			g := s.Sim.Market.Good(types.GoodIndex(i))
			views = append(views, goodView{
				ID:        g.Definition().Identifier,
				Category:  g.Definition().Category,
				Price:     pointString(g.Price()),
				Change:    pointString(g.PriceChangeYesterday()),
				Demand:    pointString(g.TotalDemandYesterday()),
				Supply:    pointString(g.TotalSupplyYesterday()),
				Available: g.IsAvailable(),
			})
		}
	})
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGoodHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	type sample struct {
		Date  string `json:"date"`
		Price string `json:"price"`
	}
	var samples []sample
	found := false
	s.locked(func() {
		idx, ok := s.Sim.Market.Catalogue().Lookup(id)
		if !ok {
			return
		}
		found = true
		for _, h := range s.Sim.Market.Good(idx).History() {
			samples = append(samples, sample{Date: h.Date.String(), Price: pointString(h.Price)})
		}
	})
	if !found {
		http.Error(w, "unknown good", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	var tags []string
	s.locked(func() {
		for _, c := range s.Sim.Countries {
			tags = append(tags, c.Tag())
		}
	})
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToUpper(r.PathValue("tag"))
	var payload map[string]any
	s.locked(func() {
		for _, c := range s.Sim.Countries {
			if c.Tag() != tag {
				continue
			}
			payload = map[string]any{
				"tag":                tag,
				"treasury":           pointString(c.Treasury()),
				"total_population":   c.TotalPopulation(),
				"primary_population": c.PrimaryCulturePopulation(),
				"average_literacy":   pointString(c.AverageLiteracy()),
				"tax_collected":      pointString(c.TaxCollectedYesterday()),
				"research_pool":      pointString(c.ResearchPool()),
				"owned_provinces":    len(c.OwnedProvinces()),
				"max_regiments":      c.MaxSupportedRegiments(),
			}
			return
		}
	})
	if payload == nil {
		http.Error(w, "unknown country", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleProvince(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("id"))
	var payload map[string]any
	s.locked(func() {
		if err != nil || idx < 0 || idx >= len(s.Sim.Provinces) {
			return
		}
		p := s.Sim.Provinces[idx]
		owner := ""
		if c := s.Sim.Country(p.Owner); c != nil {
			owner = c.Tag()
		}
		view := map[string]any{
			"id":               p.Identifier,
			"owner":            owner,
			"water":            p.Water,
			"total_population": p.TotalPopulation(),
			"pops":             len(p.Pops),
			"factories":        len(p.Factories),
		}
		if p.RGO != nil {
			view["rgo"] = map[string]any{
				"production_type": p.RGO.Type().Identifier,
				"revenue":         pointString(p.RGO.RevenueYesterday()),
				"output":          pointString(p.RGO.OutputQuantityYesterday()),
			}
		}
		payload = view
	})
	if payload == nil {
		http.Error(w, "unknown province", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleClockSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed int `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	s.Clock.SetSpeed(body.Speed)
	writeJSON(w, http.StatusOK, map[string]any{"speed": s.Clock.Speed()})
}

func (s *Server) handleClockPause(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	s.Clock.SetPaused(body.Paused)
	writeJSON(w, http.StatusOK, map[string]any{"paused": s.Clock.Paused()})
}
