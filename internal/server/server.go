package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/navigation"
	"roadsim/internal/observability"
	"roadsim/internal/spatial"
	"roadsim/internal/types"
)

type Server struct {
	Graph     *graph.Graph
	Index     *spatial.Index
	Hub       *Hub
	Heuristic navigation.Heuristic
	Gatherer  prometheus.Gatherer
	Log       logging.Logger

	jobs chan PathRequest
}

func NewServer(g *graph.Graph, idx *spatial.Index, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		Graph:     g,
		Index:     idx,
		Hub:       NewHub(log),
		Heuristic: navigation.ZeroHeuristic,
		Log:       log,
		jobs:      make(chan PathRequest, jobQueueSize),
	}
}

// Routes builds the HTTP API.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.HandleHealth)
	r.Get("/metrics", observability.Handler(s.Gatherer).ServeHTTP)
	r.Get("/ws", s.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/navigate", s.HandleNavigation)
		r.Get("/nearest", s.HandleNearest)
		r.Get("/graph", s.HandleGraph)
	})
	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  s.Graph.NodeCount(),
		"edges":  s.Graph.EdgeCount(),
	})
}

// HandleNavigation answers /api/navigate?from=lon,lat&to=lon,lat. Both ends are
// snapped to the nearest routable node. A missing route is a 200 with found
// set to false.
func (s *Server) HandleNavigation(w http.ResponseWriter, r *http.Request) {
	from, err1 := parseLonLat(r.URL.Query().Get("from"))
	to, err2 := parseLonLat(r.URL.Query().Get("to"))
	if err := errors.Join(err1, err2); err != nil {
		http.Error(w, "Invalid 'from' or 'to' parameters: "+err.Error(), http.StatusBadRequest)
		return
	}

	fromId, err := s.Index.Nearest(from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	toId, err := s.Index.Nearest(to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	path, err := s.submit(r.Context(), fromId, toId)
	if err != nil {
		s.Log.Warn(r.Context(), "navigation failed", logging.Int("from", fromId), logging.Int("to", toId), logging.Err(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := types.NavigationResponse{
		From:       fromId,
		To:         toId,
		RouteNodes: path.Route,
		Cost:       path.Cost,
		Distance:   path.Distance,
		Found:      path.Found,
	}
	if path.Found {
		resp.Geometry = geojson.NewGeometry(s.Graph.LineString(path.Route))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleNearest answers /api/nearest?lon=&lat=.
func (s *Server) HandleNearest(w http.ResponseWriter, r *http.Request) {
	lon, err1 := parseCoordinate(r.URL.Query().Get("lon"))
	lat, err2 := parseCoordinate(r.URL.Query().Get("lat"))
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid 'lon' or 'lat' parameters", http.StatusBadRequest)
		return
	}

	node, err := s.Index.Nearest(orb.Point{lon, lat})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	p := s.Graph.Coordinate(node)
	writeJSON(w, http.StatusOK, types.NearestResponse{Node: node, Lon: p.Lon(), Lat: p.Lat()})
}

func (s *Server) HandleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetGraphData())
}

func (s *Server) GetGraphData() GraphData {
	nodes := make([]NodeData, 0, len(s.Graph.Nodes))
	edges := make([]EdgeData, 0, len(s.Graph.Edges))

	for i, node := range s.Graph.Nodes {
		nodes = append(nodes, NodeData{
			Index: i,
			ID:    node.Id,
			Lon:   node.Point.Lon(),
			Lat:   node.Point.Lat(),
		})
	}
	for _, edge := range s.Graph.Edges {
		edges = append(edges, EdgeData{
			ID:       edge.Id,
			From:     edge.From,
			To:       edge.To,
			Distance: edge.Distance,
			Width:    edge.Width,
			Weight:   edge.Weight,
		})
	}
	return GraphData{Nodes: nodes, Edges: edges}
}

func parseLonLat(s string) (orb.Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("%q is not lon,lat", s)
	}
	lon, err := parseCoordinate(lonStr)
	if err != nil {
		return orb.Point{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := parseCoordinate(latStr)
	if err != nil {
		return orb.Point{}, fmt.Errorf("latitude: %w", err)
	}
	return orb.Point{lon, lat}, nil
}

// parseCoordinate accepts finite decimal degrees only; the index cannot rank
// NaN or infinite distances.
func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
