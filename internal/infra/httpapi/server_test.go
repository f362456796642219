package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/domain/statusrun"
	"sacco_backoffice/internal/infra/filestore"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *fiber.App
	statuses *app.StatusService
	members  *app.MemberService
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestEnv(t *testing.T, cronSecret string, now string) *testEnv {
	t.Helper()
	repo, err := filestore.NewJSONRepository(filepath.Join(t.TempDir(), "members.json"))
	require.NoError(t, err)

	clockTime, err := time.Parse("2006-01-02", now)
	require.NoError(t, err)
	clock := func() time.Time { return clockTime }

	statuses := app.NewStatusService(repo, repo.RunRepository(), nil, 0, quietLogger()).WithClock(clock)
	members := app.NewMemberService(repo, quietLogger()).WithClock(clock)
	return &testEnv{
		app:      NewApp(NewHandler(statuses, members, cronSecret, quietLogger())),
		statuses: statuses,
		members:  members,
	}
}

func doJSON(t *testing.T, a *fiber.App, method, path, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func registerAndContribute(t *testing.T, env *testEnv, name, date string) string {
	t.Helper()
	code, body := doJSON(t, env.app, http.MethodPost, "/api/members", `{"name":"`+name+`","monthlyContribution":"500"}`)
	require.Equal(t, http.StatusCreated, code, body)
	memberID := body["data"].(map[string]any)["memberId"].(string)
	if date != "" {
		code, body = doJSON(t, env.app, http.MethodPost, "/api/members/"+memberID+"/contributions", `{"amount":"500","date":"`+date+`"}`)
		require.Equal(t, http.StatusOK, code, body)
	}
	return memberID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "", "2024-04-15")
	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateMemberStatus_GetAndPost(t *testing.T) {
	env := newTestEnv(t, "", "2024-04-15")
	dormant := registerAndContribute(t, env, "Alice Wanjiru", "2024-01-10")
	registerAndContribute(t, env, "Brian Otieno", "2024-03-01")
	registerAndContribute(t, env, "Carol Achieng", "")

	code, body := doJSON(t, env.app, http.MethodGet, "/api/cron/update-member-status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["updated"])
	assert.Equal(t, "2024-04-15T00:00:00.000Z", body["timestamp"])
	assert.NotEmpty(t, body["message"])

	details := body["details"].([]any)
	require.Len(t, details, 2)
	first := details[0].(map[string]any)
	assert.Equal(t, dormant, first["memberId"])
	assert.Equal(t, "Alice Wanjiru", first["name"])
	assert.Equal(t, "Active", first["oldStatus"])
	assert.Equal(t, "Dormant", first["newStatus"])
	assert.Equal(t, float64(3), first["missedMonths"])

	// POST delegates to GET; nothing left to change
	code, body = doJSON(t, env.app, http.MethodPost, "/api/cron/update-member-status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["updated"])
	assert.Empty(t, body["details"])

	code, body = doJSON(t, env.app, http.MethodGet, "/api/members/"+dormant, "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Dormant", data["status"])
	assert.Equal(t, "Automatically updated: Missed 3 month(s) of contributions", data["deactivationReason"])

	code, body = doJSON(t, env.app, http.MethodGet, "/api/status-runs?limit=5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]any), 2)
}

func TestUpdateMemberStatus_CronSecret(t *testing.T) {
	env := newTestEnv(t, "s3cret", "2024-04-15")

	code, body := doJSON(t, env.app, http.MethodGet, "/api/cron/update-member-status", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = doJSON(t, env.app, http.MethodGet, "/api/cron/update-member-status", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = doJSON(t, env.app, http.MethodPost, "/api/cron/update-member-status", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

type failingEngine struct{}

func (failingEngine) RunStatusUpdate(context.Context) (*app.BatchResult, error) {
	return nil, errors.New("failed to update status for member MEM-0002: connection refused")
}

func (failingEngine) CheckMember(context.Context, string) (*app.CheckResult, error) {
	return nil, errors.New("connection refused")
}

func (failingEngine) RecentRuns(context.Context, int) ([]*statusrun.Run, error) {
	return nil, errors.New("connection refused")
}

func TestUpdateMemberStatus_Failure(t *testing.T) {
	a := NewApp(NewHandler(failingEngine{}, nil, "", quietLogger()))

	code, body := doJSON(t, a, http.MethodGet, "/api/cron/update-member-status", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to update member statuses", body["error"])
	assert.NotContains(t, body["message"], "connection refused")
	assert.NotEmpty(t, body["message"])

	code, body = doJSON(t, a, http.MethodGet, "/api/members/MEM-0001/status-check", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["success"])
}

func TestCheckMemberStatus(t *testing.T) {
	env := newTestEnv(t, "", "2024-04-15")
	stale := registerAndContribute(t, env, "Alice", "2024-02-20")
	noDate := registerAndContribute(t, env, "Brian", "")

	code, body := doJSON(t, env.app, http.MethodGet, "/api/members/"+stale+"/status-check", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["shouldUpdate"])
	assert.Equal(t, "Active", body["currentStatus"])
	assert.Equal(t, "Inactive", body["suggestedStatus"])
	assert.Equal(t, float64(2), body["missedMonths"])

	code, body = doJSON(t, env.app, http.MethodGet, "/api/members/"+noDate+"/status-check", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["shouldUpdate"])
	assert.Equal(t, "Active", body["suggestedStatus"])
	assert.Equal(t, float64(0), body["missedMonths"])

	code, body = doJSON(t, env.app, http.MethodGet, "/api/members/MEM-9999/status-check", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Unknown", body["currentStatus"])
	assert.Equal(t, "Unknown", body["suggestedStatus"])

	// the check never writes
	code, body = doJSON(t, env.app, http.MethodGet, "/api/members/"+stale, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Active", body["data"].(map[string]any)["status"])
}

func TestMemberEndpoints(t *testing.T) {
	env := newTestEnv(t, "", "2024-04-15")

	code, body := doJSON(t, env.app, http.MethodPost, "/api/members", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])

	code, _ = doJSON(t, env.app, http.MethodPost, "/api/members", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	ref := registerAndContribute(t, env, "Alice", "2024-04-01")

	code, _ = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/contributions", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/contributions", `{"amount":"10","date":"15/04/2024"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/suspend", `{"reason":"Travelling"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Temporary Inactive", body["data"].(map[string]any)["status"])

	code, body = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/reactivate", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Active", body["data"].(map[string]any)["status"])
	assert.Nil(t, body["data"].(map[string]any)["deactivationReason"])

	code, body = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/close", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Closed", body["data"].(map[string]any)["status"])
	assert.Equal(t, "Membership closed", body["data"].(map[string]any)["deactivationReason"])

	code, _ = doJSON(t, env.app, http.MethodPost, "/api/members/"+ref+"/reactivate", "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, env.app, http.MethodGet, "/api/members/MEM-0404", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = doJSON(t, env.app, http.MethodGet, "/api/members", "")
	require.Equal(t, http.StatusOK, code)
	list := body["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "500", list[0].(map[string]any)["savingsBalance"])

	code, _ = doJSON(t, env.app, http.MethodGet, "/api/status-runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
