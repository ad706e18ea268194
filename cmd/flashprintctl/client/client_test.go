package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/CANDRY15/flashprint/identity"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]interface{}{"code": code, "message": message, "details": details},
	})
}

func sessionFor(access, refresh string) identity.Session {
	return identity.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		User:         identity.User{ID: 7, Email: "admin@flashprint.test"},
	}
}

// authServer accepts one password and one access token at a time
type authServer struct {
	mu      sync.Mutex
	access  string
	revoked []string
}

func (s *authServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "s3cret-password" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Email ou mot de passe incorrect", nil)
			return
		}
		s.mu.Lock()
		s.access = "access-1"
		s.mu.Unlock()
		writeData(w, http.StatusOK, map[string]interface{}{
			"session": sessionFor("access-1", "refresh-1"), "is_admin": true, "event": identity.EventSignedIn,
		})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-1" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token", nil)
			return
		}
		s.mu.Lock()
		s.access = "access-2"
		s.mu.Unlock()
		writeData(w, http.StatusOK, map[string]interface{}{
			"session": sessionFor("access-2", "refresh-2"), "event": identity.EventTokenRefreshed,
		})
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			ok := s.access != "" && r.Header.Get("Authorization") == "Bearer "+s.access
			s.mu.Unlock()
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/v1/auth/session", authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]interface{}{"user": identity.User{ID: 7}, "is_admin": true})
	}))
	mux.HandleFunc("/api/v1/auth/has-role", authed(func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		writeData(w, http.StatusOK, map[string]interface{}{"role": role, "has_role": role == "admin"})
	}))
	mux.HandleFunc("/api/v1/auth/signout", authed(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.revoked = append(s.revoked, s.access)
		s.access = ""
		s.mu.Unlock()
		writeData(w, http.StatusOK, map[string]interface{}{"event": identity.EventSignedOut})
	}))
	return mux
}

type recorded struct {
	event   identity.Event
	session *identity.Session
}

func record(c *Client) (func() []recorded, func()) {
	var mu sync.Mutex
	var events []recorded
	unsubscribe := c.OnAuthStateChange(func(e identity.Event, s *identity.Session) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, recorded{e, s})
	})
	return func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), events...)
	}, unsubscribe
}

func TestSignInAndSignOutEmitEvents(t *testing.T) {
	srv := &authServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	c := New(ts.URL)
	events, unsubscribe := record(c)
	defer unsubscribe()
	ctx := context.Background()

	_, err := c.SignInWithPassword(ctx, "admin@flashprint.test", "wrong")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "Email ou mot de passe incorrect", err.Error())
	assert.Nil(t, c.Session())

	s, err := c.SignInWithPassword(ctx, "admin@flashprint.test", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, "access-1", s.AccessToken)

	ok, err := c.HasRole(ctx, 7, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.SignOut(ctx))
	assert.Nil(t, c.Session())
	assert.Equal(t, []string{"access-1"}, srv.revoked)

	got := events()
	require.Len(t, got, 2)
	assert.Equal(t, identity.EventSignedIn, got[0].event)
	require.NotNil(t, got[0].session)
	assert.Equal(t, uint(7), got[0].session.User.ID)
	assert.Equal(t, identity.EventSignedOut, got[1].event)
	assert.Nil(t, got[1].session)

	assert.ErrorIs(t, c.SignOut(ctx), identity.ErrNotSignedIn)
}

func TestGetSessionRefreshesExpiredToken(t *testing.T) {
	srv := &authServer{access: "access-2"}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	stale := sessionFor("access-1", "refresh-1")
	c := New(ts.URL, WithSession(&stale))
	events, unsubscribe := record(c)
	defer unsubscribe()

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "access-2", s.AccessToken)
	assert.Equal(t, "refresh-2", s.RefreshToken)

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, identity.EventTokenRefreshed, got[0].event)
}

func TestGetSessionDropsRejectedSession(t *testing.T) {
	srv := &authServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	stale := sessionFor("access-9", "refresh-9")
	c := New(ts.URL, WithSession(&stale))

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, c.Session())
}

func TestHasRoleOnlyAnswersForSignedInUser(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeData(w, http.StatusOK, map[string]interface{}{"has_role": true})
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.HasRole(context.Background(), 7, model.RoleAdmin)
	assert.ErrorIs(t, err, identity.ErrNotSignedIn)

	s := sessionFor("access-1", "refresh-1")
	c = New(ts.URL, WithSession(&s))
	ok, err := c.HasRole(context.Background(), 8, model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestIdentityContextOverClient(t *testing.T) {
	srv := &authServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	c := New(ts.URL)
	id := identity.New(c, c, nopNotifier{}, nopNavigator{}, logger.NewNop())
	defer id.Close()
	ctx := context.Background()

	require.NoError(t, id.Start(ctx))
	assert.Nil(t, id.Snapshot().Session)

	require.NoError(t, id.SignIn(ctx, "admin@flashprint.test", "s3cret-password"))
	assert.Eventually(t, func() bool { return id.Snapshot().IsAdmin }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, id.SignOut(ctx))
	snap := id.Snapshot()
	assert.False(t, snap.IsAdmin)
	assert.Nil(t, snap.Session)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, bool) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

func TestAPIErrorCarriesDetails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "NOT_READY", "Fermeture dans 3s", map[string]interface{}{"remaining_seconds": 3})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Dismiss(context.Background(), "ticket-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "NOT_READY", apiErr.Code)
	assert.Equal(t, float64(3), apiErr.Details["remaining_seconds"])
}

func TestUploadSyllabusSendsMultipartForm(t *testing.T) {
	var (
		path     string
		fields   map[string]string
		filename string
		content  []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		filename = header.Filename
		content, _ = io.ReadAll(f)

		slug := "droit-civil"
		writeData(w, http.StatusCreated, model.Syllabus{ID: "s-1", Slug: &slug, Title: fields["title"]})
	}))
	defer ts.Close()

	s := sessionFor("access-1", "refresh-1")
	c := New(ts.URL, WithSession(&s))
	row, err := c.UploadSyllabus(context.Background(), model.FlowGenerator, validation.SyllabusInput{
		Title:     "Droit Civil",
		Professor: "Prof. Kabila",
		Year:      "Bac1",
		FacultyID: "f-1",
	}, &Attachment{Filename: "droit.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/admin/syllabus/qr-generator", path)
	assert.Equal(t, "Droit Civil", fields["title"])
	assert.Equal(t, "Bac1", fields["year"])
	assert.Equal(t, "f-1", fields["faculty_id"])
	assert.Equal(t, "false", fields["popular"])
	assert.NotContains(t, fields, "website")
	assert.Equal(t, "droit.pdf", filename)
	assert.Equal(t, []byte("%PDF-1.4"), content)
	assert.Equal(t, "droit-civil", row.SlugOrID())
}

func TestDeleteSyllabusConfirmation(t *testing.T) {
	var query string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := New(ts.URL)
	require.NoError(t, c.DeleteSyllabus(context.Background(), "s-1", true))
	assert.Equal(t, "confirm=true", query)

	require.NoError(t, c.DeleteSyllabus(context.Background(), "s-1", false))
	assert.Empty(t, query)
}

func TestDownloadReadsAttachmentName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/droit-civil/download", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Droit Civil.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	name, err := New(ts.URL).Download(context.Background(), "/api/v1/documents/droit-civil/download", &buf)
	require.NoError(t, err)
	assert.Equal(t, "Droit Civil.pdf", name)
	assert.Equal(t, "%PDF-1.4 body", buf.String())
}
