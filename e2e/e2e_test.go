package e2e

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/derval/app"
	"github.com/kilianp07/derval/config"
	"github.com/kilianp07/derval/infra/mqtt"
	"github.com/kilianp07/derval/internal/testutil"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container initialised with the test
// organisation, bucket and token, and returns it along with the base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Datetime (hb),System Load (kW),SR Price ($/kW)\n")
	peak := time.Date(2021, 8, 10, 18, 0, 0, 0, time.UTC)
	for ts := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC); ts.Year() == 2021; ts = ts.Add(time.Hour) {
		load := 80
		if ts.Equal(peak) {
			load = 150
		}
		fmt.Fprintf(&sb, "%s,%d,0.5\n", ts.Format(time.RFC3339), load)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timeseries.csv"), []byte(sb.String()), 0o644))
}

// Test_E2E_RunPublishesAndRecords runs a full scenario against real InfluxDB
// and Mosquitto containers and checks that the requirements reach the broker
// and that every solved window is recorded.
func Test_E2E_RunPublishesAndRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	began := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	broker, stopBroker, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer stopBroker()
	t.Logf("InfluxDB started at %s, Mosquitto at %s", influxURL, broker)

	var mu sync.Mutex
	var msgs []mqtt.RequirementMessage
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)
	token = sub.Subscribe(mqtt.DefaultTopic+"/#", 1, func(_ paho.Client, m paho.Message) {
		var msg mqtt.RequirementMessage
		if err := json.Unmarshal(m.Payload(), &msg); err == nil {
			mu.Lock()
			msgs = append(msgs, msg)
			mu.Unlock()
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	dir := t.TempDir()
	writeInputs(t, dir)
	cfgYAML := fmt.Sprintf(`scenario:
  years: [2021]
  window: month
data:
  timeseries: timeseries.csv
services:
  - type: spinning_reserve
    conf:
      growth: 0
      duration: 1
  - type: resource_adequacy
    conf:
      days: 1
      length: 4
      idmode: peak by year
      dispmode: true
      growth: 0
      value: [4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4]
resources:
  - type: battery
    conf:
      name: ess
      discharge_kw: 25
      charge_kw: 25
      energy_kwh: 100
metrics:
  sinks:
    - type: influx
      conf:
        url: %s
        token: %s
        org: %s
        bucket: %s
mqtt:
  broker: %s
  client_id: e2e-pub
  qos: 1
output:
  dir: out
`, influxURL, influxToken, influxOrg, influxBucket, broker)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfgYAML), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Windows)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(msgs) == 1
	}, 10*time.Second, 100*time.Millisecond)
	mu.Lock()
	got := msgs[0]
	mu.Unlock()
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, "Resource Adequacy", got.Source)
	assert.Len(t, got.Points, 4)

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	n, err := cli.Count(ctx, "scenario_window", "size", res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{
		Name: "Test_E2E_RunPublishesAndRecords", Time: time.Since(began).Seconds(),
	}}}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
