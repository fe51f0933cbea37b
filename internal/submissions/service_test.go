package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/internal/models"
	"github.com/everweb-bridge/backend/internal/retry"
	"github.com/everweb-bridge/backend/internal/sheets/sheetstest"
)

type fakeRegistrar struct {
	calls    []everwebinar.Registrant
	failures int
	resp     json.RawMessage
}

func (f *fakeRegistrar) Register(_ context.Context, r everwebinar.Registrant) (json.RawMessage, error) {
	f.calls = append(f.calls, r)
	if len(f.calls) <= f.failures {
		return nil, errors.New("provider unavailable")
	}
	return f.resp, nil
}

type fixture struct {
	workbook  *sheetstest.Workbook
	purchases *sheetstest.Worksheet
	audit     *sheetstest.Worksheet
	registrar *fakeRegistrar
	svc       *Service
}

func newFixture(purchaseRows ...[]string) *fixture {
	wb := sheetstest.NewWorkbook()
	f := &fixture{
		workbook:  wb,
		purchases: wb.Add("payhip", "Orders", []string{"First Name", "Last Name", "Email"}, purchaseRows...),
		audit:     wb.Add("audit", "Submissions", []string{"Name", "Email", "Schedule"}),
		registrar: &fakeRegistrar{resp: json.RawMessage(`{"status":"success","user":{"user_id":77}}`)},
	}
	policy := retry.Policy{MaxAttempts: 3, Backoff: retry.Linear(time.Millisecond)}
	f.svc = NewService(wb, f.registrar, SheetIDs{Purchases: "payhip", Audit: "audit"}, policy, nil)
	return f
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Mary Ann Smith", "Mary", "Ann Smith"},
		{"Cher", "Cher", ""},
		{"  Jane\tDoe  ", "Jane", "Doe"},
		{"", "", ""},
	}
	for _, tc := range tests {
		first, last := SplitName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}

func TestSameEmail(t *testing.T) {
	assert.True(t, SameEmail(" Jane@X.com ", "jane@x.com"))
	assert.False(t, SameEmail("jane@x.com", "jane@y.com"))
}

func TestSubmit_MatchedEmailRegisters(t *testing.T) {
	f := newFixture(
		[]string{"Bob", "Roe", "bob@x.com"},
		[]string{"Jane", "Doe", " Jane@X.com "},
	)

	res, err := f.svc.Submit(context.Background(), models.RegistrationRequest{
		Name:             "Jane Doe",
		Email:            "jane@x.com",
		SelectedSchedule: "2026-11-02 18:00",
		ScheduleID:       json.RawMessage(`12`),
	})
	require.NoError(t, err)

	assert.Contains(t, res.Message, "Registered to EverWebinar.")
	assert.JSONEq(t, `{"status":"success","user":{"user_id":77}}`, string(res.EverWebinarResponse))
	require.Len(t, f.registrar.calls, 1)
	assert.Equal(t, everwebinar.Registrant{
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@x.com",
		ScheduleID: json.RawMessage(`12`),
	}, f.registrar.calls[0])
	assert.Equal(t, [][]string{{"Jane Doe", "jane@x.com", "2026-11-02 18:00"}}, f.audit.DataRows())
}

func TestSubmit_UnknownEmailSkipsRegistration(t *testing.T) {
	f := newFixture(
		[]string{"Bob", "Roe", "bob@x.com"},
		[]string{"No", "Email", ""},
	)

	res, err := f.svc.Submit(context.Background(), models.RegistrationRequest{
		Name: "Jane Doe", Email: "jane@x.com", SelectedSchedule: "2026-11-02 18:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "Form submitted successfully. Email not found in Payhip sheet. Not registered to EverWebinar.", res.Message)
	assert.Nil(t, res.EverWebinarResponse)
	assert.Empty(t, f.registrar.calls)
	assert.Len(t, f.audit.DataRows(), 1)
}

func TestSubmit_RetriesRegistration(t *testing.T) {
	f := newFixture([]string{"Jane", "Doe", "jane@x.com"})
	f.registrar.failures = 2

	res, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)

	assert.Contains(t, res.Message, "Registered to EverWebinar.")
	assert.Len(t, f.registrar.calls, 3)
	assert.Equal(t, "", f.registrar.calls[0].LastName)
}

func TestSubmit_RegistrationFailureKeepsAuditRow(t *testing.T) {
	f := newFixture([]string{"Jane", "Doe", "jane@x.com"})
	f.registrar.failures = 10

	_, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	require.Error(t, err)

	assert.Len(t, f.registrar.calls, 3)
	assert.Len(t, f.audit.DataRows(), 1, "audit row is not rolled back")
}

func TestSubmit_SheetFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		f := newFixture()
		f.workbook.OpenErr["payhip"] = errors.New("403 forbidden")
		_, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "A", Email: "a@x.com"})
		require.ErrorContains(t, err, "open purchase sheet")
		assert.Empty(t, f.audit.DataRows())
	})

	t.Run("read", func(t *testing.T) {
		f := newFixture()
		f.purchases.ReadErr = errors.New("quota exceeded")
		_, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "A", Email: "a@x.com"})
		require.ErrorContains(t, err, "read purchase records")
		assert.Empty(t, f.audit.DataRows())
	})

	t.Run("append", func(t *testing.T) {
		f := newFixture([]string{"A", "B", "a@x.com"})
		f.audit.AppendErr = errors.New("quota exceeded")
		_, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "A", Email: "a@x.com"})
		require.ErrorContains(t, err, "append audit row")
		assert.Empty(t, f.registrar.calls)
	})
}

func TestSubmit_EverySubmissionAppendsOneAuditRow(t *testing.T) {
	f := newFixture([]string{"Jane", "Doe", "jane@x.com"})

	for _, email := range []string{"jane@x.com", "nobody@x.com", "JANE@x.com"} {
		_, err := f.svc.Submit(context.Background(), models.RegistrationRequest{Name: "Someone", Email: email})
		require.NoError(t, err)
	}

	assert.Len(t, f.audit.DataRows(), 3)
	assert.Len(t, f.registrar.calls, 2)
}

func postSubmit(t *testing.T, svc *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/submit", NewHandler(svc, nil).Submit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Submit(t *testing.T) {
	f := newFixture([]string{"Jane", "Doe", "jane@x.com"})

	w := postSubmit(t, f.svc, `{"name":"Jane Doe","email":"Jane@x.com","selectedSchedule":"2026-11-02 18:00","scheduleId":12}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"message":"Form submitted successfully. Registered to EverWebinar.",
		"everwebinarResponse":{"status":"success","user":{"user_id":77}}
	}`, w.Body.String())
}

func TestHandler_SubmitNotFoundOmitsProviderResponse(t *testing.T) {
	f := newFixture()

	w := postSubmit(t, f.svc, `{"name":"Jane Doe","email":"jane@x.com","selectedSchedule":"s","scheduleId":"12"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "everwebinarResponse")
}

func TestHandler_SubmitMissingFields(t *testing.T) {
	f := newFixture()

	w := postSubmit(t, f.svc, `{"email":"jane@x.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid request"`)
	assert.Empty(t, f.audit.DataRows())
}

func TestHandler_SubmitFailureIs500(t *testing.T) {
	f := newFixture([]string{"Jane", "Doe", "jane@x.com"})
	f.registrar.failures = 10

	w := postSubmit(t, f.svc, `{"name":"Jane Doe","email":"jane@x.com","selectedSchedule":"s","scheduleId":1}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to submit form or register to EverWebinar", body["error"])
	assert.Contains(t, body["details"], "provider unavailable")
}
