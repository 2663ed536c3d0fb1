package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/sensor"
)

func TestThatHealthEndpointReturns204(t *testing.T) {
	is := is.New(t)

	ts := newServerForTesting(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/health")

	is.Equal(resp.StatusCode, http.StatusNoContent) // health endpoint status code not ok
}

func TestDashboardServesHTML(t *testing.T) {
	is := is.New(t)

	ts := newServerForTesting(t)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/")

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "text/html; charset=utf-8")
	is.True(strings.Contains(body, "SMART SOCKS")) // dashboard markup missing
}

func TestSensorsEndpointReturnsAllChannels(t *testing.T) {
	is := is.New(t)

	cfg := config.DefaultConfig()
	ts := newServerForTesting(t)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/sensors")

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/json")

	var values map[string]int
	is.NoErr(json.Unmarshal([]byte(body), &values))
	is.Equal(len(values), len(cfg.Channels)) // one key per channel, no extras
	for _, ch := range cfg.Channels {
		v, ok := values[ch.Name]
		is.True(ok)                            // channel key missing
		is.True(v >= 0 && v <= cfg.MaxValue()) // value out of ADC range
	}
}

func TestSensorsKeyOrderIsStableAcrossRequests(t *testing.T) {
	is := is.New(t)

	ts := newServerForTesting(t)
	defer ts.Close()

	_, body1 := testRequest(is, ts, "GET", "/api/sensors")
	_, body2 := testRequest(is, ts, "GET", "/api/sensors")

	is.Equal(jsonKeys(is, body1), jsonKeys(is, body2)) // key order changed between requests

	cfg := config.DefaultConfig()
	keys := strings.Split(jsonKeys(is, body1), ",")
	is.Equal(len(keys), len(cfg.Channels))
	for i, ch := range cfg.Channels {
		is.Equal(keys[i], ch.Name) // key order differs from channel table order
	}
}

func TestChannelsEndpointReturnsTableAndMax(t *testing.T) {
	is := is.New(t)

	ts := newServerForTesting(t)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/channels")
	is.Equal(resp.StatusCode, http.StatusOK)

	var meta channelTableResponse
	is.NoErr(json.Unmarshal([]byte(body), &meta))
	is.Equal(meta.ADCMax, 4095)
	is.Equal(len(meta.Channels), 6)
	is.Equal(meta.Channels[0].Name, "L_P_Heel")
}

func TestSensorsEndpointReportsAcquisitionFailure(t *testing.T) {
	is := is.New(t)

	cfg := config.DefaultConfig()
	api := New(failingSensor{}, cfg, zerolog.Nop())
	ts := httptest.NewServer(api.Router())
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/sensors")
	is.Equal(resp.StatusCode, http.StatusBadGateway)
	is.True(strings.Contains(body, "bus stuck"))
}

type failingSensor struct{}

func (failingSensor) Read() ([]sensor.Reading, error) { return nil, errors.New("bus stuck") }
func (failingSensor) Close() error                    { return nil }

func newServerForTesting(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	s, err := sensor.NewFakeSensor(cfg)
	if err != nil {
		t.Fatalf("fake sensor: %v", err)
	}
	api := New(s, cfg, zerolog.Nop())
	return httptest.NewServer(api.Router())
}

func testRequest(is *is.I, ts *httptest.Server, method, path string) (*http.Response, string) {
	req, err := http.NewRequest(method, ts.URL+path, nil)
	is.NoErr(err)
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	respBody, err := io.ReadAll(resp.Body)
	is.NoErr(err)
	defer resp.Body.Close()

	return resp, string(respBody)
}

// jsonKeys extracts object keys in their wire order, which encoding/json's
// map decoding would throw away.
func jsonKeys(is *is.I, body string) string {
	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	is.NoErr(err)
	is.Equal(tok, json.Delim('{'))
	keys := make([]string, 0, 8)
	for dec.More() {
		k, err := dec.Token()
		is.NoErr(err)
		keys = append(keys, k.(string))
		var v json.RawMessage
		is.NoErr(dec.Decode(&v))
	}
	return strings.Join(keys, ",")
}
