package web

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/metrics"
	"github.com/smartsocks/sensorhub/pkg/sensor"
)

//go:embed dashboard.html
var dashboardHTML []byte

// API serves the live dashboard and the JSON endpoints the dashboard polls.
// Every /api/sensors request performs its own acquisition pass, independent
// of the sampler's cadence.
type API struct {
	sensor   sensor.Sensor
	channels []config.ChannelConfig
	adcMax   int
	log      zerolog.Logger
}

func New(s sensor.Sensor, cfg config.Config, log zerolog.Logger) *API {
	return &API{
		sensor:   s,
		channels: cfg.Channels,
		adcMax:   cfg.MaxValue(),
		log:      log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/", a.dashboard)
	r.Get("/api/sensors", a.sensors)
	r.Get("/api/channels", a.channelTable)
	r.Get("/health", a.health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (a *API) Start(addr string) error {
	a.log.Info().Str("addr", addr).Msg("starting to listen for connections")
	return http.ListenAndServe(addr, a.Router())
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML)
}

func (a *API) sensors(w http.ResponseWriter, r *http.Request) {
	metrics.APIReads.Inc()
	readings, err := a.sensor.Read()
	if err != nil {
		a.log.Error().Err(err).Msg("acquisition failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sensor.Snapshot(readings))
}

type channelTableResponse struct {
	ADCMax   int                    `json:"adc_max"`
	Channels []config.ChannelConfig `json:"channels"`
}

func (a *API) channelTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channelTableResponse{ADCMax: a.adcMax, Channels: a.channels})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
