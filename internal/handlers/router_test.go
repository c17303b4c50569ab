package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/risk"
	"health-companion-backend/internal/services"
	"health-companion-backend/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testutil.NewTestStore(t)
	clock := testutil.FixedClock()
	ids := services.UUIDGenerator{}

	router := NewRouter(Services{
		Users:         services.NewUserService(store, "test-secret", time.Hour, clock, ids).WithBcryptCost(bcrypt.MinCost),
		Connections:   services.NewConnectionService(store, clock, ids),
		Records:       services.NewHealthRecordService(store, risk.NewEvaluator(), clock, ids),
		Medications:   services.NewMedicationService(store, clock, ids),
		Notifications: services.NewNotificationService(store),
		DB:            store,
	})
	return &testServer{t: t, router: router}
}

// do sends a request and decodes the JSON response into out when out is non-nil
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: failed to decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (s *testServer) register(username string, role models.Role) (*models.User, string) {
	s.t.Helper()

	var user models.User
	code := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "password1",
		"role":     string(role),
	}, &user)
	if code != http.StatusCreated {
		s.t.Fatalf("register %s status = %d, want 201", username, code)
	}

	var session SessionResponse
	code = s.do(http.MethodPost, "/api/v1/sessions", "", CreateSessionRequest{Login: username, Password: "password1"}, &session)
	if code != http.StatusCreated {
		s.t.Fatalf("session %s status = %d, want 201", username, code)
	}
	return &user, session.Token
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	if code := s.do(http.MethodGet, "/healthz", "", nil, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestAccounts(t *testing.T) {
	s := newTestServer(t)
	user, token := s.register("alice", models.RolePatient)

	t.Run("duplicate", func(t *testing.T) {
		code := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{
			"email": "alice@example.com", "username": "alice2", "password": "password1", "role": "PATIENT",
		}, nil)
		if code != http.StatusConflict {
			t.Errorf("status = %d, want 409", code)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		var body ErrorResponse
		code := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{
			"email": "bob@example.com", "username": "bob", "password": "short", "role": "PATIENT",
		}, &body)
		if code != http.StatusBadRequest || body.Field != "password" {
			t.Errorf("status = %d field = %q, want 400 password", code, body.Field)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		code := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{"nickname": "x"}, nil)
		if code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		code := s.do(http.MethodPost, "/api/v1/sessions", "", CreateSessionRequest{Login: "alice", Password: "nope"}, nil)
		if code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", code)
		}
	})

	t.Run("me", func(t *testing.T) {
		var me models.User
		if code := s.do(http.MethodGet, "/api/v1/me", token, nil, &me); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if me.ID != user.ID || me.Role != models.RolePatient {
			t.Errorf("me = %+v", me)
		}
		if code := s.do(http.MethodGet, "/api/v1/me", "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("anonymous status = %d, want 401", code)
		}
	})
}

func TestCompanionFlow(t *testing.T) {
	s := newTestServer(t)
	patient, patientToken := s.register("pat", models.RolePatient)
	_, companionToken := s.register("carer", models.RoleCompanion)

	// patients cannot request links
	if code := s.do(http.MethodPost, "/api/v1/links", patientToken, CreateLinkRequest{PatientEmail: "pat@example.com"}, nil); code != http.StatusForbidden {
		t.Errorf("patient request status = %d, want 403", code)
	}

	var link models.CompanionAccessLink
	if code := s.do(http.MethodPost, "/api/v1/links", companionToken, CreateLinkRequest{PatientEmail: "pat@example.com"}, &link); code != http.StatusCreated {
		t.Fatalf("request status = %d, want 201", code)
	}
	if code := s.do(http.MethodPost, "/api/v1/links", companionToken, CreateLinkRequest{PatientEmail: "pat@example.com"}, nil); code != http.StatusConflict {
		t.Errorf("repeat request status = %d, want 409", code)
	}
	if code := s.do(http.MethodPost, "/api/v1/links", companionToken, CreateLinkRequest{PatientEmail: "nobody@example.com"}, nil); code != http.StatusNotFound {
		t.Errorf("unknown patient status = %d, want 404", code)
	}

	var partition access.Partition
	if code := s.do(http.MethodGet, "/api/v1/links", patientToken, nil, &partition); code != http.StatusOK {
		t.Fatalf("list links status = %d", code)
	}
	if len(partition.Pending) != 1 || len(partition.Active) != 0 {
		t.Fatalf("partition = %d pending, %d active", len(partition.Pending), len(partition.Active))
	}

	// companions cannot approve
	if code := s.do(http.MethodPost, "/api/v1/links/"+link.ID+"/approve", companionToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("companion approve status = %d, want 403", code)
	}
	if code := s.do(http.MethodPost, "/api/v1/links/"+link.ID+"/approve", patientToken, nil, nil); code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}

	levels := SetAccessRequest{Glucose: models.AccessView}
	if code := s.do(http.MethodPut, "/api/v1/links/"+link.ID+"/access", patientToken, levels, &link); code != http.StatusOK {
		t.Fatalf("set access status = %d", code)
	}
	if link.GlucoseAccess != models.AccessView || link.MedicationAccess != models.AccessNone {
		t.Errorf("link levels = %+v", link)
	}

	t.Run("companion sees the link as active", func(t *testing.T) {
		var own access.Partition
		if code := s.do(http.MethodGet, "/api/v1/links", companionToken, nil, &own); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if len(own.Active) != 1 || len(own.Pending) != 0 {
			t.Errorf("partition = %d active, %d pending", len(own.Active), len(own.Pending))
		}
	})

	t.Run("levels and export in one request", func(t *testing.T) {
		enabled := true
		req := SetAccessRequest{Glucose: models.AccessView, ExportAccess: &enabled}
		var got models.CompanionAccessLink
		if code := s.do(http.MethodPut, "/api/v1/links/"+link.ID+"/access", patientToken, req, &got); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if got.GlucoseAccess != models.AccessView || !got.ExportAccess {
			t.Errorf("link = %+v", got)
		}
	})

	var patients struct {
		Patients []*models.CompanionAccessLink `json:"patients"`
	}
	if code := s.do(http.MethodGet, "/api/v1/patients", companionToken, nil, &patients); code != http.StatusOK {
		t.Fatalf("list patients status = %d", code)
	}
	if len(patients.Patients) != 1 || patients.Patients[0].PatientID != patient.ID {
		t.Errorf("patients = %+v", patients.Patients)
	}

	reading := services.GlucoseInput{Level: 55, Type: models.GlucoseFasting, Date: "2024-01-15", Time: "07:00"}
	if code := s.do(http.MethodPost, "/api/v1/patients/me/glucose", patientToken, reading, nil); code != http.StatusCreated {
		t.Fatalf("add glucose status = %d", code)
	}
	if code := s.do(http.MethodPost, "/api/v1/patients/me/glucose", patientToken, reading, nil); code != http.StatusConflict {
		t.Errorf("duplicate glucose status = %d, want 409", code)
	}

	t.Run("companion is alerted", func(t *testing.T) {
		var body struct {
			Notifications []*models.Notification `json:"notifications"`
			UnreadCount   int                    `json:"unread_count"`
		}
		if code := s.do(http.MethodGet, "/api/v1/notifications?unread=true", companionToken, nil, &body); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if body.UnreadCount != 1 || len(body.Notifications) != 1 {
			t.Fatalf("notifications = %+v", body)
		}

		n := body.Notifications[0]
		if code := s.do(http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", patientToken, nil, nil); code != http.StatusForbidden {
			t.Errorf("mark read by patient status = %d, want 403", code)
		}
		if code := s.do(http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", companionToken, nil, nil); code != http.StatusNoContent {
			t.Errorf("mark read status = %d, want 204", code)
		}
	})

	t.Run("view does not allow edit", func(t *testing.T) {
		var records struct {
			Records []*models.GlucoseRecord `json:"records"`
		}
		if code := s.do(http.MethodGet, "/api/v1/patients/"+patient.ID+"/glucose", companionToken, nil, &records); code != http.StatusOK {
			t.Fatalf("list status = %d", code)
		}
		if len(records.Records) != 1 {
			t.Fatalf("records = %d, want 1", len(records.Records))
		}

		other := services.GlucoseInput{Level: 100, Type: models.GlucoseFasting, Date: "2024-01-15", Time: "12:00"}
		if code := s.do(http.MethodPost, "/api/v1/patients/"+patient.ID+"/glucose", companionToken, other, nil); code != http.StatusForbidden {
			t.Errorf("add status = %d, want 403", code)
		}
		if code := s.do(http.MethodDelete, "/api/v1/glucose/"+records.Records[0].ID, companionToken, nil, nil); code != http.StatusForbidden {
			t.Errorf("delete status = %d, want 403", code)
		}
		if code := s.do(http.MethodGet, "/api/v1/patients/"+patient.ID+"/medications", companionToken, nil, nil); code != http.StatusForbidden {
			t.Errorf("medications status = %d, want 403", code)
		}
	})

	t.Run("patient view", func(t *testing.T) {
		var view services.PatientView
		if code := s.do(http.MethodGet, "/api/v1/patients/"+patient.ID, companionToken, nil, &view); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if len(view.Glucose) != 1 || len(view.BloodPressure) != 0 {
			t.Errorf("view = %+v", view)
		}
	})

	t.Run("malformed ids", func(t *testing.T) {
		if code := s.do(http.MethodGet, "/api/v1/patients/not-a-uuid", companionToken, nil, nil); code != http.StatusNotFound {
			t.Errorf("patient status = %d, want 404", code)
		}
		if code := s.do(http.MethodDelete, "/api/v1/links/not-a-uuid", patientToken, nil, nil); code != http.StatusForbidden {
			t.Errorf("link status = %d, want 403", code)
		}
	})

	t.Run("exports are not routed without storage", func(t *testing.T) {
		if code := s.do(http.MethodPost, "/api/v1/patients/me/exports", patientToken, nil, nil); code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", code)
		}
	})

	t.Run("companion withdraws", func(t *testing.T) {
		if code := s.do(http.MethodDelete, "/api/v1/links/"+link.ID, companionToken, nil, nil); code != http.StatusNoContent {
			t.Fatalf("withdraw status = %d, want 204", code)
		}
		if code := s.do(http.MethodGet, "/api/v1/patients/"+patient.ID+"/glucose", companionToken, nil, nil); code != http.StatusForbidden {
			t.Errorf("list after withdraw status = %d, want 403", code)
		}
	})
}

func TestMedicationRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register("pat", models.RolePatient)

	var med models.Medication
	code := s.do(http.MethodPost, "/api/v1/patients/me/medications", token, services.MedicationInput{Name: "Insulin", Dosage: "10u"}, &med)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}

	if code := s.do(http.MethodPost, "/api/v1/medications/"+med.ID+"/logs", token, nil, nil); code != http.StatusCreated {
		t.Errorf("log dose status = %d, want 201", code)
	}

	var list struct {
		Medications []*models.Medication `json:"medications"`
	}
	if code := s.do(http.MethodGet, "/api/v1/patients/me/medications", token, nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Medications) != 1 || len(list.Medications[0].Logs) != 1 {
		t.Errorf("medications = %+v", list.Medications)
	}

	if code := s.do(http.MethodDelete, "/api/v1/medications/"+med.ID, token, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", code)
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Field: "date", Message: "bad"}, http.StatusBadRequest},
		{"duplicate", services.ErrDuplicate, http.StatusConflict},
		{"already linked", services.ErrAlreadyLinked, http.StatusConflict},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"unauthorized", services.ErrUnauthorized, http.StatusForbidden},
		{"storage", errors.Join(services.ErrStorage, errors.New("disk on fire")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "failed")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusInternalServerError && bytes.Contains(rec.Body.Bytes(), []byte("disk on fire")) {
				t.Error("storage detail leaked into response")
			}
		})
	}
}
