package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"groundswell/api/internal/auth"
	"groundswell/api/internal/authpw"
	"groundswell/api/internal/config"
	"groundswell/api/internal/petitionform"
	"groundswell/api/internal/progress"
	"groundswell/api/internal/rbac"
	"groundswell/api/internal/realtime"
	"groundswell/api/internal/search"
	"groundswell/api/internal/signing"
	"groundswell/api/internal/store"
	"groundswell/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	IsAdmin      bool
	JTI          string
	ExpiresAt    time.Time
}

// SharePayload carries everything the share screen needs: the public
// signing link plus prefilled social intent URLs.
type SharePayload struct {
	PetitionID     string `json:"petition_id"`
	Title          string `json:"title"`
	SignatureCount int    `json:"signature_count"`
	Goal           int    `json:"goal"`
	ShareURL       string `json:"share_url"`
	FacebookURL    string `json:"facebook_url"`
	TwitterURL     string `json:"twitter_url"`
	LinkedInURL    string `json:"linkedin_url"`
}

type dataStore interface {
	CreatePetition(context.Context, store.Petition) (store.Petition, error)
	GetPetition(context.Context, string) (store.Petition, error)
	ListPetitions(context.Context) ([]store.Petition, error)
	InsertSignature(context.Context, store.Signature) (store.Signature, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// eventBus is the full view of the notification transport: handlers
// publish after a commit, progress feeds subscribe.
type eventBus interface {
	realtime.Channel
	realtime.Publisher
}

// feed is one petition's live progress pipeline. The snapshot store is
// shared by every open viewer of that petition; the subscription stays
// up until the last watcher releases the feed.
type feed struct {
	snapshots *progress.Store
	sub       realtime.Subscription
	watchers  int
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	bus      eventBus
	search   *search.Service
	auth     *authpw.Service

	feedMu sync.Mutex
	feeds  map[string]*feed
}

func New(cfg config.Config, dataStore dataStore, sessions sessionStore, bus eventBus, searchSvc *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		bus:      bus,
		search:   searchSvc,
		auth:     authpw.NewService(dataStore),
		feeds:    make(map[string]*feed),
	}
}

// Close tears down every live progress feed.
func (s *Service) Close() {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	for id, f := range s.feeds {
		_ = f.sub.Close()
		delete(s.feeds, id)
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the admin account and warms the search index. It is
// idempotent: CreateUser ignores an existing email, and reindexing
// replaces documents by id.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminPassword != "" {
		_, err := s.store.GetUserByEmail(ctx, s.cfg.AdminEmail)
		if err != nil {
			if _, err := s.auth.SignUp(ctx, authpw.SignUpRequest{
				Email:       s.cfg.AdminEmail,
				Password:    s.cfg.AdminPassword,
				DisplayName: s.cfg.AdminName,
				Role:        rbac.RoleAdmin,
			}); err != nil {
				return fmt.Errorf("seed admin account: %w", err)
			}
		}
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

// SignIn authenticates against the admin gate. Valid credentials on a
// non-admin account surface authpw.ErrNotAdmin so the caller can say
// "signed in but not allowed" rather than "wrong password".
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	resp, err := s.auth.SignInAdmin(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, resp.User, resp.IsAdmin)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user, rbac.Can(user.Role, rbac.ActionManage))
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func (s *Service) issueSession(ctx context.Context, user store.User, isAdmin bool) (Session, error) {
	claims := auth.NewClaims(user.ID, user.DisplayName, isAdmin, s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewOpaqueToken()
	refreshExpires := time.Now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		IsAdmin:      isAdmin,
		JTI:          claims.JTI,
		ExpiresAt:    time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		IsAdmin:   claims.Admin,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// CreatePetition validates the form and inserts the petition with a
// zero signature count, then registers it with the search index.
func (s *Service) CreatePetition(ctx context.Context, form petitionform.Form) (store.Petition, error) {
	proto := petitionform.NewProtocol(s.store, nil)
	created, err := proto.Create(ctx, form)
	if err != nil {
		return store.Petition{}, err
	}

	if s.search != nil {
		s.search.IndexPetition(petitionRecord(created))
	}
	return created, nil
}

func (s *Service) Petition(ctx context.Context, petitionID string) (store.Petition, error) {
	return s.store.GetPetition(ctx, petitionID)
}

func (s *Service) Petitions(ctx context.Context) ([]store.Petition, error) {
	items, err := s.store.ListPetitions(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Petition{}
	}
	return items, nil
}

// Sign records one signature, refreshes local progress views, and
// notifies remote viewers over the bus. The publish happens after the
// datastore commit; subscribers refetch the row rather than trusting
// anything in the event itself.
func (s *Service) Sign(ctx context.Context, petitionID string, signer signing.Signer) (store.Petition, error) {
	proto := signing.NewProtocol(s.store, s.feedSnapshots(petitionID))
	petition, err := proto.Submit(ctx, petitionID, signer)
	if err != nil {
		return store.Petition{}, err
	}

	if err := s.bus.Publish(ctx, realtime.Event{
		Kind:       realtime.KindInsert,
		Table:      "signatures",
		PetitionID: petitionID,
	}); err != nil {
		// The signature is committed; viewers still converge on their
		// next refetch even if this notification is lost.
		log.Printf("app: publish signature event for %s: %v", petitionID, err)
	}

	if s.search != nil {
		s.search.IndexPetition(petitionRecord(petition))
	}
	return petition, nil
}

// Feed returns the shared snapshot store for one petition, creating
// the feed on first use: an initial authoritative load plus a bus
// subscription that refetches on every signature event. The caller
// must invoke release when done watching; the feed and its bus
// subscription are torn down when the last watcher releases.
func (s *Service) Feed(ctx context.Context, petitionID string) (*progress.Store, func(), error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if f, ok := s.feeds[petitionID]; ok {
		f.watchers++
		return f.snapshots, s.releaseFunc(petitionID, f), nil
	}

	snapshots := progress.NewStore()
	syncer := progress.NewSynchronizer(s.store, s.bus, snapshots)
	if err := syncer.Load(ctx, petitionID); err != nil {
		return nil, nil, err
	}

	// The subscription outlives the requesting connection, so it is
	// bound to the process, not the request.
	sub, err := syncer.Subscribe(context.Background(), petitionID)
	if err != nil {
		return nil, nil, err
	}

	f := &feed{snapshots: snapshots, sub: sub, watchers: 1}
	s.feeds[petitionID] = f
	return snapshots, s.releaseFunc(petitionID, f), nil
}

// releaseFunc builds a once-only release for one watcher of f. When the
// last watcher releases, the subscription is closed and the feed is
// dropped so idle petitions do not pin Redis subscriptions.
func (s *Service) releaseFunc(petitionID string, f *feed) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.feedMu.Lock()
			defer s.feedMu.Unlock()
			f.watchers--
			if f.watchers > 0 || s.feeds[petitionID] != f {
				return
			}
			_ = f.sub.Close()
			delete(s.feeds, petitionID)
		})
	}
}

// feedSnapshots returns the live snapshot store for a petition if one
// exists. Signing does not create feeds; it only refreshes them.
func (s *Service) feedSnapshots(petitionID string) *progress.Store {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if f, ok := s.feeds[petitionID]; ok {
		return f.snapshots
	}
	return nil
}

// Share builds the public signing link and social intent URLs for a
// petition.
func (s *Service) Share(ctx context.Context, petitionID string) (SharePayload, error) {
	petition, err := s.store.GetPetition(ctx, petitionID)
	if err != nil {
		return SharePayload{}, err
	}

	shareURL := s.cfg.PublicOrigin + "/sign/" + petition.ID
	text := fmt.Sprintf("Sign the petition: %s", petition.Title)

	return SharePayload{
		PetitionID:     petition.ID,
		Title:          petition.Title,
		SignatureCount: petition.SignatureCount,
		Goal:           petition.Goal,
		ShareURL:       shareURL,
		FacebookURL:    "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(shareURL),
		TwitterURL:     "https://twitter.com/intent/tweet?url=" + url.QueryEscape(shareURL) + "&text=" + url.QueryEscape(text),
		LinkedInURL:    "https://www.linkedin.com/sharing/share-offsite/?url=" + url.QueryEscape(shareURL),
	}, nil
}

// Search runs an admin full-text query over petitions.
func (s *Service) Search(ctx context.Context, text string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	return s.search.Search(search.Query{Text: text, Limit: limit, Offset: offset}), nil
}

func petitionRecord(p store.Petition) search.PetitionRecord {
	return search.PetitionRecord{
		ID:             p.ID,
		Title:          p.Title,
		Story:          p.Story,
		Goal:           p.Goal,
		SignatureCount: p.SignatureCount,
	}
}
