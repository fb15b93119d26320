package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/paylens"
)

// ============================================================================
// FIXTURES
// ============================================================================

const staffCSV = "name,department,role,salary\nA,IT,Developer,60000\nB,Finance,Analyst,50000\nC,IT,Support,45000\n"

// env is an isolated config, data file and history database.
type env struct {
	dir    string
	config string
	data   string
	db     string
}

func newEnv(t *testing.T, configYAML string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		data:   filepath.Join(dir, "staff.csv"),
		db:     filepath.Join(dir, "history.db"),
	}
	if configYAML == "" {
		configYAML = "capability:\n  api_key_env: PAYLENS_TEST_UNSET_KEY\n"
	}
	require.NoError(t, os.WriteFile(e.config, []byte(configYAML), 0o600))
	require.NoError(t, os.WriteFile(e.data, []byte(staffCSV), 0o600))
	return e
}

// run executes the root command with the env's config and database.
func (e *env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// anthropicServer answers every request with reply as the model text.
func anthropicServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": reply}},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func capabilityConfig(endpoint string) string {
	return "capability:\n  provider: anthropic\n  api_key_env: PAYLENS_TEST_KEY\n  endpoint: " + endpoint + "\n  timeout: 5s\n"
}

// ============================================================================
// ROOT
// ============================================================================

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"ask", "validate", "stats", "history", "recommend", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	e := newEnv(t, "")
	_, _, err := e.run(t, "--format", "xml", "version")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t, "mode: telepathy\n")
	_, _, err := e.run(t, "version")
	assert.ErrorContains(t, err, "mode")
}

func TestVersion(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "paylens "+paylens.Version+"\n", out)
}

// ============================================================================
// ASK
// ============================================================================

func TestAskPatternText(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run(t, "ask", "--file", e.data, "Who", "earns", "most", "in", "IT?")
	require.NoError(t, err)

	assert.Contains(t, out, "Highest salary in IT: A (Developer) - 60,000 kr")
	assert.Contains(t, out, "Mode: PATTERN")
	assert.Contains(t, out, "Fallback: capability_unavailable")
	assert.Contains(t, out, "Trace: top_earner: TOP_N(n=1, department=IT)")
}

func TestAskExplicitPatternModeHasNoFallback(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run(t, "ask", "--file", e.data, "--mode", "pattern", "average salary Finance")
	require.NoError(t, err)
	assert.Contains(t, out, "Average salary in Finance: 50,000 kr (1 employee)")
	assert.NotContains(t, out, "Fallback:")
}

func TestAskJSON(t *testing.T) {
	e := newEnv(t, "mode: pattern\n")
	out, _, err := e.run(t, "--format", "json", "ask", "--file", e.data, "Who earns most in IT?")
	require.NoError(t, err)

	var got struct {
		Question string `json:"question"`
		Source   string `json:"source"`
		Result   struct {
			ModeUsed string           `json:"modeUsed"`
			Value    float64          `json:"value"`
			Rows     []map[string]any `json:"rows"`
		} `json:"result"`
		Transitions []string `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Who earns most in IT?", got.Question)
	assert.Equal(t, "staff.csv", got.Source)
	assert.Equal(t, "PATTERN", got.Result.ModeUsed)
	assert.Equal(t, 60000.0, got.Result.Value)
	require.Len(t, got.Result.Rows, 1)
	assert.Equal(t, "A", got.Result.Rows[0]["name"])
	assert.Equal(t, []string{"AWAITING_QUESTION", "RUNNING_PATTERN", "DONE"}, got.Transitions)
}

func TestAskCSV(t *testing.T) {
	e := newEnv(t, "mode: pattern\n")
	out, _, err := e.run(t, "--format", "csv", "ask", "--file", e.data, "Who earns most in IT?")
	require.NoError(t, err)
	assert.Equal(t, "name,department,role,salary\nA,IT,Developer,60000\n", out)
}

func TestAskPreFilter(t *testing.T) {
	e := newEnv(t, "mode: pattern\n")
	out, _, err := e.run(t, "ask", "--file", e.data, "--max-salary", "55000", "Who earns most?")
	require.NoError(t, err)
	assert.Contains(t, out, "Highest salary: B (Finance, Analyst) - 50,000 kr")

	_, _, err = e.run(t, "ask", "--file", e.data, "--min-salary", "9", "--max-salary", "1", "Who earns most?")
	assert.ErrorContains(t, err, "--min-salary")
}

func TestAskCapability(t *testing.T) {
	srv := anthropicServer(t, http.StatusOK, `{"summary":"Average salary in Finance.","steps":[
		{"op":"filter","column":"department","cmp":"==","value":"Finance"},
		{"op":"aggregate","func":"mean","column":"salary"}]}`)
	t.Setenv("PAYLENS_TEST_KEY", "secret")
	e := newEnv(t, capabilityConfig(srv.URL))

	out, _, err := e.run(t, "ask", "--file", e.data, "average salary Finance")
	require.NoError(t, err)
	assert.Contains(t, out, "Average salary in Finance. Result: 50,000 kr.")
	assert.Contains(t, out, "Mode: CAPABILITY")
	assert.NotContains(t, out, "Fallback:")
}

func TestAskCapabilityFallsBack(t *testing.T) {
	srv := anthropicServer(t, http.StatusInternalServerError, "overloaded")
	t.Setenv("PAYLENS_TEST_KEY", "secret")
	e := newEnv(t, capabilityConfig(srv.URL))

	out, stderr, err := e.run(t, "ask", "--file", e.data, "Who earns most in IT?")
	require.NoError(t, err)
	assert.Contains(t, out, "60,000 kr")
	assert.Contains(t, out, "Mode: PATTERN")
	assert.Contains(t, out, "Fallback: capability_unavailable")
	assert.Contains(t, stderr, "capability interpreter failed")
}

func TestAskSchemaError(t *testing.T) {
	e := newEnv(t, "")
	bad := filepath.Join(e.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("name,department,role\nA,IT,Developer\n"), 0o600))

	_, _, err := e.run(t, "ask", "--file", bad, "Who earns most?")
	assert.ErrorContains(t, err, "missing required columns: salary")
}

func TestAskRequiresFileAndQuestion(t *testing.T) {
	e := newEnv(t, "")
	_, _, err := e.run(t, "ask", "Who earns most?")
	assert.Error(t, err)

	_, _, err = e.run(t, "ask", "--file", e.data)
	assert.Error(t, err)
}

// ============================================================================
// HISTORY
// ============================================================================

func TestAskRecordsHistory(t *testing.T) {
	e := newEnv(t, "mode: pattern\n")

	_, _, err := e.run(t, "ask", "--history", "--file", e.data, "Who earns most in IT?")
	require.NoError(t, err)
	_, _, err = e.run(t, "ask", "--file", e.data, "average salary Finance")
	require.NoError(t, err)

	out, _, err := e.run(t, "--format", "json", "history")
	require.NoError(t, err)
	var entries []struct {
		Question string `json:"question"`
		ModeUsed string `json:"modeUsed"`
		Source   string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Who earns most in IT?", entries[0].Question)
	assert.Equal(t, "PATTERN", entries[0].ModeUsed)
	assert.Equal(t, "staff.csv", entries[0].Source)

	out, _, err = e.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Who earns most in IT?")
}

func TestHistoryEnabledInConfig(t *testing.T) {
	e := newEnv(t, "mode: pattern\nhistory:\n  enabled: true\n")
	for _, q := range []string{"Who earns most?", "average salary Finance", "Who earns most in IT?"} {
		_, _, err := e.run(t, "ask", "--file", e.data, q)
		require.NoError(t, err)
	}

	out, _, err := e.run(t, "--format", "json", "history", "--limit", "2")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Who earns most in IT?", entries[0]["question"])
}

func TestHistoryEmpty(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "No questions recorded yet.\n", out)
}

// ============================================================================
// VALIDATE / STATS / RECOMMEND
// ============================================================================

func TestValidate(t *testing.T) {
	e := newEnv(t, "")
	messy := filepath.Join(e.dir, "messy.csv")
	require.NoError(t, os.WriteFile(messy, []byte("Namn;Avdelning;Roll;Lön\nA;IT;Developer;60 000\nB;Finance;Analyst;okänd\n"), 0o600))

	out, _, err := e.run(t, "validate", "--file", messy)
	require.NoError(t, err)
	assert.Contains(t, out, "messy.csv: 1 valid records")
	assert.Contains(t, out, "Columns: name, department, role, salary")
	assert.Contains(t, out, "Warning:")

	out, _, err = e.run(t, "--format", "json", "validate", "--file", e.data)
	require.NoError(t, err)
	var res ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Records)
	assert.Len(t, res.Columns, 4)
	assert.Empty(t, res.Warnings)
}

func TestStats(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run(t, "stats", "--file", e.data)
	require.NoError(t, err)
	assert.Contains(t, out, "Employees:    3")
	assert.Contains(t, out, "Range:        45,000 kr - 60,000 kr")
	assert.Contains(t, out, "Monthly cost: 155,000 kr")
	assert.Contains(t, out, "52,500 kr")

	out, _, err = e.run(t, "--format", "csv", "stats", "--file", e.data, "--department", "it")
	require.NoError(t, err)
	assert.Equal(t, "department,employees,average,median,min,max\nIT,2,52500,52500,45000,60000\n", out)
}

func TestRecommend(t *testing.T) {
	srv := anthropicServer(t, http.StatusOK, "HIGH|RETENTION|Review developer pay.\nLOW|EQUITY|Publish salary bands.")
	t.Setenv("PAYLENS_TEST_KEY", "secret")
	e := newEnv(t, capabilityConfig(srv.URL))

	out, _, err := e.run(t, "--format", "csv", "recommend", "--file", e.data)
	require.NoError(t, err)
	assert.Equal(t, "priority,category,recommendation\nHIGH,RETENTION,Review developer pay.\nLOW,EQUITY,Publish salary bands.\n", out)
}

func TestRecommendWithoutKey(t *testing.T) {
	e := newEnv(t, "")
	_, _, err := e.run(t, "recommend", "--file", e.data)
	assert.ErrorContains(t, err, "PAYLENS_TEST_UNSET_KEY")
}
