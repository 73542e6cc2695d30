// Package session keeps the signed-in identity and the cart of a browser
// session in a gorilla/sessions store.
package session

import (
	"context"
	"fmt"
	"net/http"

	"paloma-store/internal/cart"
	"paloma-store/internal/config"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	keySessionID = "sid"
	keyUserID    = "user_id"
	keyEmail     = "email"
	keyRole      = "role"
	keyCart      = "cart"
)

// CookieValueLimit is the largest encoded session a browser reliably keeps
// in one cookie. Cookie stores refuse cart writes beyond it.
const CookieValueLimit = 4096

// NewStore builds the cookie or filesystem store described by cfg.
func NewStore(cfg config.SessionConfig) (sessions.Store, error) {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	switch cfg.Store {
	case "cookie":
		store := sessions.NewCookieStore([]byte(cfg.Secret))
		store.Options = opts
		// the cart write checks CookieValueLimit itself and reports ErrCartFull
		for _, c := range store.Codecs {
			if codec, ok := c.(*securecookie.SecureCookie); ok {
				codec.MaxLength(0)
			}
		}
		return store, nil
	case "filesystem":
		store := sessions.NewFilesystemStore(cfg.Dir, []byte(cfg.Secret))
		store.Options = opts
		// carts can outgrow the securecookie default of 4096 bytes
		store.MaxLength(0)
		return store, nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Store)
}

// Manager reads and writes the named session of a request.
type Manager struct {
	store  sessions.Store
	name   string
	logger zerolog.Logger
}

// NewManager creates a manager for the session cookie name.
func NewManager(store sessions.Store, name string, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		name:   name,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// get returns the request's session. Sessions are cached per request, so
// repeated calls see the same values. A cookie that no longer decodes (for
// example after a secret rotation) yields a fresh session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		m.logger.Debug().Err(err).Msg("session cookie did not decode, starting a new session")
	}
	if s == nil {
		s = sessions.NewSession(m.store, m.name)
		s.Options = &sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
		s.IsNew = true
	}
	return s
}

// ID returns the opaque session id, creating one on first use.
func (m *Manager) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	s := m.get(r)
	if id, ok := s.Values[keySessionID].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	s.Values[keySessionID] = id
	if err := s.Save(r, w); err != nil {
		m.logger.Error().Err(err).Msg("failed to save session")
		return "", model.NewPersistenceError("failed to save session", err)
	}
	return id, nil
}

// Identity returns the signed-in user of r, if any.
func (m *Manager) Identity(r *http.Request) (*model.Session, bool) {
	s := m.get(r)
	raw, ok := s.Values[keyUserID].(string)
	if !ok || raw == "" {
		return nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	email, _ := s.Values[keyEmail].(string)
	role, _ := s.Values[keyRole].(string)
	return &model.Session{UserID: id, Email: email, Role: model.Role(role)}, true
}

// SignIn binds user to the session. The cart is kept.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, user *model.User) error {
	s := m.get(r)
	s.Values[keyUserID] = user.ID.String()
	s.Values[keyEmail] = user.Email
	s.Values[keyRole] = string(user.Role)
	if err := s.Save(r, w); err != nil {
		m.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to save session")
		return model.NewPersistenceError("failed to save session", err)
	}
	return nil
}

// SignOut removes the identity from the session. The cart is kept.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, keyUserID)
	delete(s.Values, keyEmail)
	delete(s.Values, keyRole)
	if err := s.Save(r, w); err != nil {
		m.logger.Error().Err(err).Msg("failed to save session")
		return model.NewPersistenceError("failed to save session", err)
	}
	return nil
}

// CartStorage returns a cart.Storage bound to this request's session.
func (m *Manager) CartStorage(w http.ResponseWriter, r *http.Request) cart.Storage {
	return &cartStorage{m: m, w: w, r: r}
}

// cartStorage keeps the JSON cart as a string session value.
type cartStorage struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request
}

func (c *cartStorage) Load() ([]byte, error) {
	s := c.m.get(c.r)
	raw, _ := s.Values[keyCart].(string)
	return []byte(raw), nil
}

// Save writes the cart into the session. On a cookie store a cart that
// would not fit in the cookie is refused with model.ErrCartFull and the
// session keeps the previous cart.
func (c *cartStorage) Save(data []byte) error {
	s := c.m.get(c.r)
	prev, hadPrev := s.Values[keyCart]
	s.Values[keyCart] = string(data)

	if store, ok := c.m.store.(*sessions.CookieStore); ok {
		encoded, err := securecookie.EncodeMulti(c.m.name, s.Values, store.Codecs...)
		if err != nil {
			c.restore(s, prev, hadPrev)
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if len(encoded) > CookieValueLimit {
			c.restore(s, prev, hadPrev)
			c.m.logger.Warn().
				Int("bytes", len(encoded)).
				Int("limit", CookieValueLimit).
				Msg("cart does not fit in the session cookie")
			return model.ErrCartFull
		}
	}
	return s.Save(c.r, c.w)
}

func (c *cartStorage) restore(s *sessions.Session, prev any, hadPrev bool) {
	if hadPrev {
		s.Values[keyCart] = prev
		return
	}
	delete(s.Values, keyCart)
}

type identityKey struct{}

// WithIdentity returns a context carrying the signed-in user.
func WithIdentity(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, identityKey{}, s)
}

// FromContext returns the signed-in user stored by WithIdentity.
func FromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(identityKey{}).(*model.Session)
	return s, ok && s != nil
}
