package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/pkg/auth"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

const (
	ContextActor      = "actor"
	HeaderActorID     = "X-Actor-ID"
	HeaderActorName   = "X-Actor-Name"
	HeaderActorRole   = "X-Actor-Role"
	defaultCacheSweep = 10 * time.Minute
)

// AuthMiddleware resolves the acting clinic user of each request. Verified
// tokens are cached until they expire. With DevHeaders set, requests without
// a bearer token may name the actor through X-Actor-* headers.
type AuthMiddleware struct {
	verifier   *auth.Verifier
	cache      *gocache.Cache
	devHeaders bool
	now        func() time.Time
}

func NewAuthMiddleware(verifier *auth.Verifier, devHeaders bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		cache:      gocache.New(gocache.NoExpiration, defaultCacheSweep),
		devHeaders: devHeaders,
		now:        time.Now,
	}
}

// Authenticate sets the actor in the context or aborts with 401.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := m.resolve(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		c.Set(ContextActor, actor)
		c.Next()
	}
}

func (m *AuthMiddleware) resolve(c *gin.Context) (model.Actor, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if m.devHeaders && c.GetHeader(HeaderActorID) != "" {
			return devActor(c)
		}
		return model.Actor{}, apperrors.Unauthorized(nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return model.Actor{}, apperrors.Unauthorized(nil)
	}
	token := parts[1]

	if cached, ok := m.cache.Get(token); ok {
		return cached.(model.Actor), nil
	}

	actor, expiresAt, err := m.verifier.Verify(token)
	if err != nil {
		return model.Actor{}, err
	}
	if ttl := expiresAt.Sub(m.now()); ttl > 0 {
		m.cache.Set(token, actor, ttl)
	}
	return actor, nil
}

func devActor(c *gin.Context) (model.Actor, error) {
	role, ok := model.ParseRole(c.GetHeader(HeaderActorRole))
	if !ok {
		return model.Actor{}, apperrors.Unauthorized(nil)
	}
	return model.Actor{
		ID:   c.GetHeader(HeaderActorID),
		Name: c.GetHeader(HeaderActorName),
		Role: role,
	}, nil
}

// ActorFrom returns the actor set by Authenticate.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}
