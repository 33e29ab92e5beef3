package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"daymark/api/internal/archive"
	"daymark/api/internal/auth"
	"daymark/api/internal/authpw"
	"daymark/api/internal/blobstore"
	"daymark/api/internal/config"
	"daymark/api/internal/export"
	"daymark/api/internal/habits"
	"daymark/api/internal/metrics"
	"daymark/api/internal/search"
	"daymark/api/internal/session"
	"daymark/api/internal/sheets"
	"daymark/api/internal/store"
	"daymark/api/internal/util"
)

// Session is the resolved identity behind an access token. In sheets mode it
// carries what the Google adapter needs; in blob mode only UserID matters.
type Session struct {
	UserID             string
	Backend            string
	Timezone           string
	SpreadsheetID      string
	GoogleRefreshToken string
}

// TokenPair is what every auth endpoint hands back.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Backend      string `json:"backend"`
	ExpiresAt    int64  `json:"expiresAt"`
}

const (
	placeholderHabit = "Unknown habit"
	placeholderNote  = "Unknown note"

	exportTitle = "My habits tracker"
)

// StatePayload is the reconciled state returned by GET /api/state and by
// every mutation. Today is the display view with names resolved; dangling
// ids resolve to placeholders rather than being dropped.
type StatePayload struct {
	Habits        []habits.Habit         `json:"habits"`
	Notes         []habits.Note          `json:"notes"`
	Today         DayView                `json:"today"`
	TodaySnapshot habits.DailySnapshot   `json:"todaySnapshot"`
	AllSnapshots  []habits.DailySnapshot `json:"allSnapshots"`
}

type DayView struct {
	Date   string      `json:"date"`
	Habits []HabitItem `json:"habits"`
	Notes  []NoteItem  `json:"notes"`
}

type HabitItem struct {
	HabitID   string `json:"habitId"`
	Text      string `json:"habitText"`
	NeedCount int    `json:"habitNeedCount"`
	DidCount  int    `json:"habitDidCount"`
}

type NoteItem struct {
	NoteID string `json:"noteId"`
	Name   string `json:"noteName"`
	Text   string `json:"noteText"`
}

// VersionGrid is one archived state, both raw and decoded.
type VersionGrid struct {
	Hash string      `json:"hash"`
	Grid [][]string  `json:"grid"`
	Data habits.Data `json:"data"`
}

// sessionData is the stored session record.
type sessionData = session.Data

type sessionStore interface {
	Save(ctx context.Context, tokenHash string, data sessionData, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (sessionData, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type gridClient interface {
	Find(ctx context.Context) (sheets.SpreadsheetInfo, error)
	Create(ctx context.Context, grid [][]string) (sheets.SpreadsheetInfo, error)
	ReadGrid(ctx context.Context, spreadsheetID string) ([][]string, error)
	WriteGrid(ctx context.Context, spreadsheetID string, grid [][]string) error
}

type gridClientFactory func(ctx context.Context, refreshToken string) (gridClient, error)

type archiver interface {
	CommitGrid(userID string, grid [][]string, message string) (archive.Version, error)
	Versions(userID string, limit int) ([]archive.Version, error)
	GridAt(userID, hash string) ([][]string, error)
}

type noteSearcher interface {
	Search(q search.Query) search.Response
	IndexNotes(records []search.NoteRecord)
}

type exporter interface {
	Export(data habits.Data, req export.Request) (*export.Result, error)
}

type passwordAuth interface {
	SignUp(ctx context.Context, req authpw.SignUpRequest) (store.User, error)
	SignIn(ctx context.Context, email, password string) (store.User, error)
}

// Service orchestrates auth, backend persistence and the snapshot engine.
// Writes are read-modify-write with last-writer-wins; there is no per-user
// locking across instances.
type Service struct {
	cfg      config.Config
	secret   []byte
	log      *zap.Logger
	passwd   passwordAuth
	sessions sessionStore
	blob     blobstore.Store
	google   *auth.GoogleOAuth
	newGrid  gridClientFactory
	archive  archiver
	search   noteSearcher
	export   exporter
	now      func() time.Time
}

// Deps carries everything Service needs. Passwd and Blob may be nil in
// sheets mode; Google may be disabled in blob mode.
type Deps struct {
	Log      *zap.Logger
	Passwd   passwordAuth
	Sessions sessionStore
	Blob     blobstore.Store
	Google   *auth.GoogleOAuth
	NewGrid  gridClientFactory
	Archive  archiver
	Export   exporter
}

func NewService(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		secret:   []byte(cfg.JWTSecret),
		log:      deps.Log,
		passwd:   deps.Passwd,
		sessions: deps.Sessions,
		blob:     deps.Blob,
		google:   deps.Google,
		newGrid:  deps.NewGrid,
		archive:  deps.Archive,
		export:   deps.Export,
		now:      time.Now,
	}
	if s.newGrid == nil && deps.Google != nil {
		s.newGrid = func(ctx context.Context, refreshToken string) (gridClient, error) {
			return sheets.NewClient(ctx, deps.Google.TokenSource(ctx, refreshToken))
		}
	}
	return s
}

// SetSearch wires the search facade in after construction; the scan fallback
// needs the service itself to load state, so this breaks the cycle.
func (s *Service) SetSearch(n noteSearcher) {
	s.search = n
}

// SearchLoader adapts the service into the loader the scan fallback uses.
func (s *Service) SearchLoader() search.StateLoader {
	return func(userID string) (habits.Data, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := s.sessionByUserID(ctx, userID)
		if err != nil {
			return habits.Data{}, err
		}
		data, err := s.loadData(ctx, sess)
		if err != nil {
			return habits.Data{}, err
		}
		_, all := habits.Reconcile(data.Habits, data.Notes, data.Snapshots, habits.TodayString(sess.Timezone))
		data.Snapshots = all
		return data, nil
	}
}

// Ping reports backend connectivity for readiness checks.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.sessions.Ping(ctx); err != nil {
		return err
	}
	if s.blob != nil {
		return s.blob.Ping(ctx)
	}
	return nil
}

// --- auth ---

func (s *Service) SignUp(ctx context.Context, email, password, displayName, timezone string) (TokenPair, error) {
	if s.passwd == nil {
		return TokenPair{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Password authentication not configured", nil)
	}
	user, err := s.passwd.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		Timezone:    timezone,
	})
	if errors.Is(err, authpw.ErrEmailTaken) {
		return TokenPair{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	}
	if err != nil {
		return TokenPair{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return s.issueSession(ctx, sessionData{
		UserID:   user.ID,
		Backend:  s.cfg.Backend,
		Timezone: user.Timezone,
	})
}

func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	if s.passwd == nil {
		return TokenPair{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Password authentication not configured", nil)
	}
	user, err := s.passwd.SignIn(ctx, email, password)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return TokenPair{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if err != nil {
		s.log.Error("sign in", zap.Error(err))
		return TokenPair{}, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Sign in failed", nil)
	}
	return s.issueSession(ctx, sessionData{
		UserID:   user.ID,
		Backend:  s.cfg.Backend,
		Timezone: user.Timezone,
	})
}

// GoogleAuthURL returns the consent URL plus a state nonce the client must
// echo back through the callback.
func (s *Service) GoogleAuthURL() (url, state string, err error) {
	if s.google == nil || !s.google.Enabled() {
		return "", "", domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Google sign-in not configured", nil)
	}
	state = util.NewToken()
	return s.google.AuthURL(state), state, nil
}

// GoogleCallback exchanges the OAuth code, locates or creates the tracker
// spreadsheet, and opens a session bound to it.
func (s *Service) GoogleCallback(ctx context.Context, code, timezone string) (TokenPair, error) {
	if s.google == nil || !s.google.Enabled() {
		return TokenPair{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Google sign-in not configured", nil)
	}
	tok, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("google code exchange failed", zap.Error(err))
		return TokenPair{}, domainError(http.StatusUnauthorized, "OAUTH_EXCHANGE_FAILED", "Google sign-in failed", nil)
	}
	if tok.RefreshToken == "" {
		return TokenPair{}, domainError(http.StatusBadRequest, "NO_REFRESH_TOKEN", "Google did not return a refresh token; remove the app's access and sign in again", nil)
	}

	client, err := s.newGrid(ctx, tok.RefreshToken)
	if err != nil {
		s.log.Error("sheets client", zap.Error(err))
		return TokenPair{}, domainError(http.StatusBadGateway, "BACKEND_ERROR", "Could not reach Google Sheets", nil)
	}
	info, err := client.Find(ctx)
	if errors.Is(err, sheets.ErrSpreadsheetNotFound) {
		info, err = client.Create(ctx, habits.EncodeGrid(nil, nil, nil))
	}
	if err != nil {
		s.log.Error("locate spreadsheet", zap.Error(err))
		return TokenPair{}, s.backendError(err)
	}

	if timezone == "" {
		timezone = "UTC"
	}
	return s.issueSession(ctx, sessionData{
		UserID:             "g-" + info.ID,
		Backend:            "sheets",
		GoogleRefreshToken: tok.RefreshToken,
		SpreadsheetID:      info.ID,
		Timezone:           timezone,
	})
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	data, err := s.sessions.Lookup(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return TokenPair{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	access, err := auth.IssueToken(s.secret, data.UserID, data.Backend, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	metrics.IncrementSession("refreshed")
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		UserID:       data.UserID,
		Backend:      data.Backend,
		ExpiresAt:    s.now().Add(s.cfg.AccessTTL).Unix(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	metrics.IncrementSession("revoked")
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken resolves the access token into a full session. The JWT
// carries identity; the adapter details (timezone, Google token) live in the
// profile entry written alongside the refresh session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return Session{}, err
	}
	return s.sessionByUserID(ctx, claims.UserID)
}

func (s *Service) sessionByUserID(ctx context.Context, userID string) (Session, error) {
	data, err := s.sessions.Lookup(ctx, profileKey(userID))
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		UserID:             data.UserID,
		Backend:            data.Backend,
		Timezone:           data.Timezone,
		SpreadsheetID:      data.SpreadsheetID,
		GoogleRefreshToken: data.GoogleRefreshToken,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, data sessionData) (TokenPair, error) {
	now := s.now()
	data.CreatedAt = now
	access, err := auth.IssueToken(s.secret, data.UserID, data.Backend, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh := util.NewToken()
	expires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), data, expires); err != nil {
		return TokenPair{}, err
	}
	// Profile entry: lets access tokens resolve adapter details without
	// carrying them in the JWT.
	if err := s.sessions.Save(ctx, profileKey(data.UserID), data, expires); err != nil {
		return TokenPair{}, err
	}
	metrics.IncrementSession("issued")
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       data.UserID,
		Backend:      data.Backend,
		ExpiresAt:    now.Add(s.cfg.AccessTTL).Unix(),
	}, nil
}

func profileKey(userID string) string {
	return auth.HashToken("profile:" + userID)
}

// --- state & mutations ---

// State loads the backend, reconciles to today and returns the payload.
func (s *Service) State(ctx context.Context, sess Session) (StatePayload, error) {
	data, err := s.loadData(ctx, sess)
	if err != nil {
		return StatePayload{}, err
	}
	return s.buildPayload(sess, data), nil
}

func (s *Service) Increment(ctx context.Context, sess Session, habitID string, newCount int) (StatePayload, error) {
	return s.mutate(ctx, sess, "increment", func(d habits.Data, today string) habits.Data {
		return habits.ApplyIncrement(d, today, habitID, newCount)
	})
}

func (s *Service) AddHabit(ctx context.Context, sess Session, text string, needCount int) (StatePayload, error) {
	if needCount < 1 {
		needCount = 1
	}
	habit := habits.Habit{ID: habits.NewID(habits.KindHabit), Text: text}
	return s.mutate(ctx, sess, "add_habit", func(d habits.Data, today string) habits.Data {
		return habits.ApplyAddHabit(d, today, habit, needCount)
	})
}

func (s *Service) EditHabit(ctx context.Context, sess Session, habitID, text string, needCount, didCount int) (StatePayload, error) {
	habit := habits.Habit{ID: habitID, Text: text}
	return s.mutate(ctx, sess, "edit_habit", func(d habits.Data, today string) habits.Data {
		return habits.ApplyEditHabit(d, today, habit, needCount, didCount)
	})
}

func (s *Service) DeleteHabit(ctx context.Context, sess Session, habitID string) (StatePayload, error) {
	return s.mutate(ctx, sess, "delete_habit", func(d habits.Data, today string) habits.Data {
		return habits.ApplyDeleteHabit(d, today, habitID)
	})
}

func (s *Service) AddNote(ctx context.Context, sess Session, name, text string) (StatePayload, error) {
	note := habits.Note{ID: habits.NewID(habits.KindNote), Name: name}
	return s.mutate(ctx, sess, "add_note", func(d habits.Data, today string) habits.Data {
		return habits.ApplyAddNote(d, today, note, text)
	})
}

func (s *Service) EditNote(ctx context.Context, sess Session, noteID, name, text string) (StatePayload, error) {
	return s.mutate(ctx, sess, "edit_note", func(d habits.Data, today string) habits.Data {
		return habits.ApplyEditNote(d, today, noteID, name, text)
	})
}

func (s *Service) DeleteNote(ctx context.Context, sess Session, noteID string) (StatePayload, error) {
	return s.mutate(ctx, sess, "delete_note", func(d habits.Data, today string) habits.Data {
		return habits.ApplyDeleteNote(d, today, noteID)
	})
}

// mutate is the single read-modify-write path: load, reconcile so today
// exists, apply, persist, archive and index. Last writer wins.
func (s *Service) mutate(ctx context.Context, sess Session, op string, apply func(habits.Data, string) habits.Data) (StatePayload, error) {
	data, err := s.loadData(ctx, sess)
	if err != nil {
		metrics.IncrementMutation(op, "error")
		return StatePayload{}, err
	}

	today := habits.TodayString(sess.Timezone)
	_, all := habits.Reconcile(data.Habits, data.Notes, data.Snapshots, today)
	data.Snapshots = all

	data = apply(data, today)

	if err := s.saveData(ctx, sess, data, op); err != nil {
		metrics.IncrementMutation(op, "error")
		return StatePayload{}, err
	}
	metrics.IncrementMutation(op, "ok")
	return s.buildPayload(sess, data), nil
}

func (s *Service) loadData(ctx context.Context, sess Session) (habits.Data, error) {
	started := s.now()
	defer func() {
		metrics.RecordBackendOp(sess.Backend, "read", time.Since(started))
	}()

	if sess.Backend == "sheets" {
		client, err := s.newGrid(ctx, sess.GoogleRefreshToken)
		if err != nil {
			s.log.Error("sheets client", zap.Error(err))
			return habits.Data{}, s.backendError(err)
		}
		grid, err := client.ReadGrid(ctx, sess.SpreadsheetID)
		if err != nil {
			s.log.Error("read grid", zap.Error(err))
			return habits.Data{}, s.backendError(err)
		}
		return habits.DecodeGrid(grid), nil
	}

	stored, err := s.blob.Read(ctx, sess.UserID)
	if err != nil {
		s.log.Error("read blob", zap.String("backend", sess.Backend), zap.Error(err))
		return habits.Data{}, s.backendError(err)
	}
	if stored == nil {
		return habits.Empty(), nil
	}
	return *stored, nil
}

func (s *Service) saveData(ctx context.Context, sess Session, data habits.Data, op string) error {
	grid := habits.EncodeGrid(data.Habits, data.Notes, data.Snapshots)

	started := s.now()
	if sess.Backend == "sheets" {
		client, err := s.newGrid(ctx, sess.GoogleRefreshToken)
		if err != nil {
			return s.backendError(err)
		}
		if err := client.WriteGrid(ctx, sess.SpreadsheetID, grid); err != nil {
			s.log.Error("write grid", zap.Error(err))
			return s.backendError(err)
		}
	} else {
		if err := s.blob.Write(ctx, sess.UserID, data); err != nil {
			s.log.Error("write blob", zap.String("backend", sess.Backend), zap.Error(err))
			return s.backendError(err)
		}
	}
	metrics.RecordBackendOp(sess.Backend, "write", time.Since(started))

	if s.archive != nil {
		if _, err := s.archive.CommitGrid(sess.UserID, grid, op); err != nil {
			s.log.Warn("archive commit failed", zap.String("user", sess.UserID), zap.Error(err))
		}
	}
	s.indexNotes(sess.UserID, data)
	return nil
}

func (s *Service) indexNotes(userID string, data habits.Data) {
	if s.search == nil {
		return
	}
	names := make(map[string]string, len(data.Notes))
	for _, n := range data.Notes {
		names[n.ID] = n.Name
	}
	var records []search.NoteRecord
	for _, snap := range data.Snapshots {
		for _, e := range snap.Notes {
			if strings.TrimSpace(e.Text) == "" {
				continue
			}
			records = append(records, search.NoteRecord{
				ID:     search.RecordID(userID, e.NoteID, snap.Date),
				UserID: userID,
				NoteID: e.NoteID,
				Name:   names[e.NoteID],
				Text:   e.Text,
				Date:   snap.Date,
			})
		}
	}
	s.search.IndexNotes(records)
}

func (s *Service) buildPayload(sess Session, data habits.Data) StatePayload {
	today, all := habits.Reconcile(data.Habits, data.Notes, data.Snapshots, habits.TodayString(sess.Timezone))
	return StatePayload{
		Habits:        nonNilHabits(data.Habits),
		Notes:         nonNilNotes(data.Notes),
		Today:         dayView(data, today),
		TodaySnapshot: today,
		AllSnapshots:  all,
	}
}

func dayView(data habits.Data, snap habits.DailySnapshot) DayView {
	habitNames := make(map[string]string, len(data.Habits))
	for _, h := range data.Habits {
		habitNames[h.ID] = h.Text
	}
	noteNames := make(map[string]string, len(data.Notes))
	for _, n := range data.Notes {
		noteNames[n.ID] = n.Name
	}

	view := DayView{Date: snap.Date, Habits: []HabitItem{}, Notes: []NoteItem{}}
	for _, e := range snap.Habits {
		name, ok := habitNames[e.HabitID]
		if !ok {
			name = placeholderHabit
		}
		view.Habits = append(view.Habits, HabitItem{
			HabitID:   e.HabitID,
			Text:      name,
			NeedCount: e.NeedCount,
			DidCount:  e.DidCount,
		})
	}
	for _, e := range snap.Notes {
		name, ok := noteNames[e.NoteID]
		if !ok {
			name = placeholderNote
		}
		view.Notes = append(view.Notes, NoteItem{NoteID: e.NoteID, Name: name, Text: e.Text})
	}
	return view
}

// --- search, export, history ---

func (s *Service) SearchNotes(sess Session, q string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{UserID: sess.UserID, Text: q, Limit: limit, Offset: offset})
}

// Export renders the gap-filled history in the requested format.
func (s *Service) Export(ctx context.Context, sess Session, format export.Format) (*export.Result, error) {
	data, err := s.loadData(ctx, sess)
	if err != nil {
		return nil, err
	}
	_, all := habits.Reconcile(data.Habits, data.Notes, data.Snapshots, habits.TodayString(sess.Timezone))
	data.Snapshots = all
	result, err := s.export.Export(data, export.Request{Format: format, Title: exportTitle})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not available", nil)
		}
		s.log.Error("export", zap.String("format", string(format)), zap.Error(err))
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Export failed", nil)
	}
	return result, nil
}

func (s *Service) HistoryVersions(sess Session, limit int) ([]archive.Version, error) {
	if s.archive == nil {
		return []archive.Version{}, nil
	}
	versions, err := s.archive.Versions(sess.UserID, limit)
	if err != nil {
		s.log.Error("list versions", zap.Error(err))
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Could not list versions", nil)
	}
	return versions, nil
}

func (s *Service) HistoryGrid(sess Session, hash string) (VersionGrid, error) {
	if s.archive == nil {
		return VersionGrid{}, domainError(http.StatusNotFound, "NOT_FOUND", "No archive configured", nil)
	}
	grid, err := s.archive.GridAt(sess.UserID, hash)
	if err != nil {
		return VersionGrid{}, domainError(http.StatusNotFound, "NOT_FOUND", "Version not found", nil)
	}
	return VersionGrid{Hash: hash, Grid: grid, Data: habits.DecodeGrid(grid)}, nil
}

// backendError maps adapter failures onto the HTTP taxonomy: expired Google
// credentials are the caller's problem, everything else is a bad gateway.
func (s *Service) backendError(err error) error {
	var derr *DomainError
	if errors.As(err, &derr) {
		return err
	}
	if errors.Is(err, sheets.ErrTokenExpired) {
		return domainError(http.StatusUnauthorized, "GOOGLE_TOKEN_EXPIRED", "Google access expired, sign in again", nil)
	}
	return domainError(http.StatusBadGateway, "BACKEND_ERROR", "Storage backend unavailable", nil)
}

func nonNilHabits(in []habits.Habit) []habits.Habit {
	if in == nil {
		return []habits.Habit{}
	}
	return in
}

func nonNilNotes(in []habits.Note) []habits.Note {
	if in == nil {
		return []habits.Note{}
	}
	return in
}
