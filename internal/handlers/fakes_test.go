package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type fakeTrips struct {
	trips  map[int64]models.Trip
	nextID int64
}

func newFakeTrips(trips ...models.Trip) *fakeTrips {
	f := &fakeTrips{trips: map[int64]models.Trip{}}
	for _, t := range trips {
		f.trips[t.ID] = t
		if t.ID > f.nextID {
			f.nextID = t.ID
		}
	}
	return f
}

func (f *fakeTrips) Create(_ context.Context, trip models.Trip) (models.Trip, error) {
	f.nextID++
	trip.ID = f.nextID
	f.trips[trip.ID] = trip
	return trip, nil
}

func (f *fakeTrips) GetByID(_ context.Context, id int64) (models.Trip, error) {
	trip, ok := f.trips[id]
	if !ok {
		return models.Trip{}, apperr.NotFound("trip not found")
	}
	return trip, nil
}

func (f *fakeTrips) FindByName(_ context.Context, name string) (models.Trip, error) {
	for _, t := range f.trips {
		if t.Name == name {
			return t, nil
		}
	}
	return models.Trip{}, apperr.NotFound("trip not found")
}

func (f *fakeTrips) ListForUser(_ context.Context, ownerID int64, sharedIDs []int64) ([]models.Trip, error) {
	shared := map[int64]bool{}
	for _, id := range sharedIDs {
		shared[id] = true
	}
	out := make([]models.Trip, 0)
	for _, t := range f.trips {
		if t.OwnerID == ownerID || shared[t.ID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTrips) Update(_ context.Context, id int64, req models.UpdateTripRequest) (models.Trip, error) {
	trip, ok := f.trips[id]
	if !ok {
		return models.Trip{}, apperr.NotFound("trip not found")
	}
	if req.Name != nil {
		trip.Name = *req.Name
	}
	if req.StartDate != nil {
		trip.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		trip.EndDate = req.EndDate
	}
	f.trips[id] = trip
	return trip, nil
}

func (f *fakeTrips) Delete(_ context.Context, id int64) error {
	if _, ok := f.trips[id]; !ok {
		return apperr.NotFound("trip %d not found", id)
	}
	delete(f.trips, id)
	return nil
}

type access struct{ read, write bool }

// fakeSharing answers from fixed tables. issueErr, validateErr and acceptErr
// override the happy path.
type fakeSharing struct {
	access      map[[2]int64]access
	sharedIDs   map[int64][]int64
	invites     []models.SharedTrip
	issued      []models.SharedTrip
	revoked     []int64
	issueErr    error
	validateErr error
	acceptErr   error
}

func newFakeSharing() *fakeSharing {
	return &fakeSharing{access: map[[2]int64]access{}, sharedIDs: map[int64][]int64{}}
}

func (f *fakeSharing) grant(tripID, userID int64, read, write bool) {
	f.access[[2]int64{tripID, userID}] = access{read: read, write: write}
	f.sharedIDs[userID] = append(f.sharedIDs[userID], tripID)
}

func (f *fakeSharing) IssueOrReuseInviteLink(_ context.Context, tripID int64, canRead, canWrite bool, issuer models.User) (models.SharedTrip, error) {
	if f.issueErr != nil {
		return models.SharedTrip{}, f.issueErr
	}
	invite := models.SharedTrip{
		ID:              int64(len(f.issued) + 1),
		TripID:          tripID,
		CanRead:         canRead,
		CanWrite:        canWrite,
		InvitedByUserID: issuer.ID,
		InviteLink:      "tok-123",
		InvitedAt:       1700000000,
		ExpiredAt:       1700003600,
	}
	f.issued = append(f.issued, invite)
	return invite, nil
}

func (f *fakeSharing) ValidateToken(_ context.Context, token string, _ int64) (models.SharedTrip, error) {
	if f.validateErr != nil {
		return models.SharedTrip{}, f.validateErr
	}
	return models.SharedTrip{ID: 1, TripID: 10, InviteLink: token}, nil
}

func (f *fakeSharing) AcceptInvite(_ context.Context, token string, user models.User) (models.SharedTrip, error) {
	if f.acceptErr != nil {
		return models.SharedTrip{}, f.acceptErr
	}
	uid := user.ID
	return models.SharedTrip{ID: 1, TripID: 10, InviteLink: token, UserID: &uid}, nil
}

func (f *fakeSharing) GetSharedTripIDs(_ context.Context, user models.User) ([]int64, error) {
	ids := f.sharedIDs[user.ID]
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (f *fakeSharing) ListTripInvites(_ context.Context, tripID int64) ([]models.SharedTripView, error) {
	out := make([]models.SharedTripView, 0)
	for _, inv := range f.invites {
		if inv.TripID == tripID {
			out = append(out, models.SharedTripView{SharedTrip: inv, State: models.InviteStateOpen})
		}
	}
	return out, nil
}

func (f *fakeSharing) RevokeInvite(_ context.Context, tripID, inviteID int64) error {
	for _, inv := range f.invites {
		if inv.ID == inviteID && inv.TripID == tripID {
			f.revoked = append(f.revoked, inviteID)
			return nil
		}
	}
	return apperr.NotFound("invite %d not found", inviteID)
}

func (f *fakeSharing) TripAccess(_ context.Context, tripID, userID int64) (bool, bool, error) {
	a := f.access[[2]int64{tripID, userID}]
	return a.read, a.write, nil
}

type fakeHistory struct {
	recorded  []models.CreateHistoryRequest
	deleted   []int64
	lastLimit int
	result    models.TripHistory
	count     int
	recordErr error
}

func (f *fakeHistory) RecordHistory(_ context.Context, req models.CreateHistoryRequest, user models.User) (models.HistoryRecord, error) {
	if f.recordErr != nil {
		return models.HistoryRecord{}, f.recordErr
	}
	f.recorded = append(f.recorded, req)
	return models.HistoryRecord{
		ID:                int64(len(f.recorded)),
		TripID:            req.TripID,
		Action:            req.Action,
		ActionParams:      req.ActionParams,
		UpdatedBy:         user.ID,
		UpdatedByUsername: user.Username,
	}, nil
}

func (f *fakeHistory) Prune(context.Context, int64) (int, error) {
	return 0, nil
}

func (f *fakeHistory) GetTripHistory(_ context.Context, _ int64, limit int) (models.TripHistory, error) {
	f.lastLimit = limit
	return f.result, nil
}

func (f *fakeHistory) GetAllHistoryCount(context.Context, models.User) (models.HistoryCount, error) {
	return models.HistoryCount{Total: f.count}, nil
}

func (f *fakeHistory) DeleteTripHistory(_ context.Context, tripID int64) (int64, error) {
	f.deleted = append(f.deleted, tripID)
	return 1, nil
}

type fakeUsers struct {
	users     map[string]models.User
	createErr error
}

func newFakeUsers(t *testing.T, username, password string) *fakeUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeUsers{users: map[string]models.User{
		username: {ID: 1, Username: username, Email: username + "@example.com", PasswordHash: string(hash)},
	}}
}

func (f *fakeUsers) CreateUser(_ context.Context, username, email, _ string) (models.User, error) {
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	user := models.User{ID: int64(len(f.users) + 1), Username: username, Email: email}
	f.users[username] = user
	return user, nil
}

func (f *fakeUsers) AuthenticateUser(_ context.Context, username, password string) (models.User, error) {
	user, ok := f.users[username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.Unauthorized("invalid credentials")
	}
	return user, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user not found")
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendInvite(recipientEmail, tripName, inviteURL string) error {
	m.sent = append(m.sent, recipientEmail+"|"+tripName+"|"+inviteURL)
	return m.err
}

type testEnv struct {
	trips   *fakeTrips
	sharing *fakeSharing
	history *fakeHistory
	mailer  *fakeMailer
	router  *mux.Router
}

const (
	ownerID    int64 = 1
	readerID   int64 = 2
	writerID   int64 = 3
	strangerID int64 = 4
)

// newTestEnv seeds trip 10 owned by ownerID, shared read-only with readerID and
// writable with writerID.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		trips:   newFakeTrips(models.Trip{ID: 10, Name: "Lisbon 2025", OwnerID: ownerID}),
		sharing: newFakeSharing(),
		history: &fakeHistory{},
		mailer:  &fakeMailer{},
	}
	env.sharing.grant(10, readerID, true, false)
	env.sharing.grant(10, writerID, true, true)

	logger := zerolog.Nop()
	trip := NewTripHandler(env.trips, env.sharing, env.history, logger)
	shared := NewSharedTripHandler(env.sharing, env.trips, env.mailer, "https://app.test/shared/%s", logger)
	hist := NewHistoryHandler(env.history, env.trips, env.sharing, 20, logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/trips", trip.List).Methods(http.MethodGet)
	r.HandleFunc("/api/trips", trip.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/trips/{tripID}", trip.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/trips/{tripID}", trip.Update).Methods(http.MethodPut)
	r.HandleFunc("/api/trips/{tripID}", trip.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/trips/{tripID}/invites", shared.ListTripInvites).Methods(http.MethodGet)
	r.HandleFunc("/api/trips/{tripID}/invites/{inviteID}", shared.RevokeInvite).Methods(http.MethodDelete)
	r.HandleFunc("/api/shared-trips", shared.CreateInvite).Methods(http.MethodPost)
	r.HandleFunc("/api/shared-trips/validate", shared.Validate).Methods(http.MethodPost)
	r.HandleFunc("/api/shared-trips/accept", shared.Accept).Methods(http.MethodPost)
	r.HandleFunc("/api/shared-trips/ids", shared.SharedTripIDs).Methods(http.MethodGet)
	r.HandleFunc("/api/history", hist.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/history/trip/{tripID}", hist.TripHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/history/count", hist.Count).Methods(http.MethodGet)
	env.router = r
	return env
}

// do sends the request as userID. body is JSON-encoded unless it is a string.
func (env *testEnv) do(t *testing.T, method, path string, body interface{}, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(authz.WithIdentity(req.Context(), userID, "user"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
