package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/member-portal/credentials"
	"github.com/jrsteele09/member-portal/identity"
	"github.com/jrsteele09/member-portal/internal/config"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/internal/logging"
	"github.com/jrsteele09/member-portal/internal/metrics"
	"github.com/jrsteele09/member-portal/internal/telemetry"
	"github.com/jrsteele09/member-portal/sessions"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Admins       credentials.AdminRepo        // Administrative operator accounts
	MemberAccess credentials.MemberAccessRepo // Member login credentials
	Members      credentials.MemberRepo       // Canonical membership records
	Sessions     sessions.Repo                // Issued session tokens
}

// Grant is an issued or resolved session together with its identity.
type Grant struct {
	Session  *sessions.Session
	Identity identity.Identity
}

// Service issues, validates and revokes portal sessions.
type Service struct {
	repos             Repos
	policy            *Policy
	lifetime          time.Duration
	validationTimeout time.Duration
	singleSession     bool
	nowTime           func() time.Time       // injectable for testing
	newToken          func() (string, error) // injectable for testing
	tracer            trace.Tracer
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithTokenGenerator replaces the session token generator
func WithTokenGenerator(gen func() (string, error)) ServiceOption {
	return func(s *Service) {
		s.newToken = gen
	}
}

// WithSingleSessionPerIdentity makes a new login deactivate earlier sessions of the same identity
func WithSingleSessionPerIdentity(enabled bool) ServiceOption {
	return func(s *Service) {
		s.singleSession = enabled
	}
}

// WithPolicy replaces the policy built from the configured privileged roles.
func WithPolicy(p *Policy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

// dummyHash gives unknown identifiers the same bcrypt cost as a wrong secret.
var dummyHash = sync.OnceValue(func() string {
	h, err := credentials.HashSecret("member-portal-timing-equaliser")
	if err != nil {
		return ""
	}
	return h
})

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, cfg config.SessionConfig, options ...ServiceOption) (*Service, error) {
	if repos.Admins == nil {
		return nil, errors.New("[NewService] Admins repo is required")
	}
	if repos.MemberAccess == nil {
		return nil, errors.New("[NewService] MemberAccess repo is required")
	}
	if repos.Members == nil {
		return nil, errors.New("[NewService] Members repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] session config is required")
	}

	s := &Service{
		repos:             repos,
		policy:            NewPolicy(cfg.GetPrivilegedRoles()),
		lifetime:          cfg.GetSessionLifetime(),
		validationTimeout: cfg.GetValidationTimeout(),
		singleSession:     cfg.GetSingleSessionPerIdentity(),
		nowTime:           time.Now,
		newToken:          sessions.NewToken,
		tracer:            telemetry.Tracer(),
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Policy returns the area policy Enter applies.
func (s *Service) Policy() *Policy {
	return s.policy
}

// Issue checks identifier and secret against the administrative set, then the
// member set, and persists a new session for the first match.
func (s *Service) Issue(ctx context.Context, identifier, secret string) (grant *Grant, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Issue")
	defer func() { endSpan(span, err) }()

	id, err := s.authenticate(ctx, strings.TrimSpace(identifier), secret)
	if err != nil {
		metrics.LoginTotal.WithLabelValues("unknown", apperrors.Code(err)).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("identity.kind", string(id.Kind)))

	token, err := s.newToken()
	if err != nil {
		metrics.LoginTotal.WithLabelValues(string(id.Kind), "token_error").Inc()
		return nil, errors.Wrap(err, "[Service.Issue] token generation")
	}

	now := s.nowTime()
	if s.singleSession {
		if _, err := s.repos.Sessions.DeactivateByIdentity(ctx, id.Kind, id.Key()); err != nil {
			metrics.LoginTotal.WithLabelValues(string(id.Kind), apperrors.Code(apperrors.ErrSessionPersistence)).Inc()
			return nil, fmt.Errorf("[Service.Issue] deactivate previous sessions: %w: %w", apperrors.ErrSessionPersistence, err)
		}
	}

	session := sessions.New(token, id, now, s.lifetime)
	if err := s.repos.Sessions.Insert(ctx, session); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("identity", id.String()).Msg("failed to persist session")
		metrics.LoginTotal.WithLabelValues(string(id.Kind), apperrors.Code(apperrors.ErrSessionPersistence)).Inc()
		return nil, fmt.Errorf("[Service.Issue] insert session: %w: %w", apperrors.ErrSessionPersistence, err)
	}

	metrics.LoginTotal.WithLabelValues(string(id.Kind), "success").Inc()
	logging.Ctx(ctx).Info().
		Str("identity", id.String()).
		Str("token", sessions.TokenPrefix(token)).
		Time("expires_at", session.ExpiresAt).
		Msg("session issued")

	return &Grant{Session: session, Identity: id}, nil
}

func (s *Service) authenticate(ctx context.Context, identifier, secret string) (identity.Identity, error) {
	if identifier == "" || secret == "" {
		return identity.Identity{}, apperrors.ErrInvalidCredentials
	}

	compared := false

	if sigla := identity.NormalizeSigla(identifier); identity.ValidSigla(sigla) {
		admin, err := s.repos.Admins.GetBySigla(ctx, sigla)
		switch {
		case err == nil:
			compared = true
			if credentials.CheckSecret(secret, admin.SecretHash) && admin.Active {
				return admin.Identity(), nil
			}
		case apperrors.Is(err, apperrors.ErrNotFound):
		case apperrors.Is(err, apperrors.ErrDataIntegrity):
			logging.Ctx(ctx).Error().Err(err).Str("sigla", sigla).Msg("duplicate administrative credential")
			return identity.Identity{}, errors.Wrap(err, "[Service.authenticate] admin lookup")
		default:
			return identity.Identity{}, errors.Wrap(err, "[Service.authenticate] admin lookup")
		}
	}

	if nationalID := identity.NormalizeNationalID(identifier); nationalID != "" {
		access, err := s.repos.MemberAccess.GetByNationalID(ctx, nationalID)
		switch {
		case err == nil:
			compared = true
			if credentials.CheckSecret(secret, access.SecretHash) {
				return s.memberIdentity(ctx, access)
			}
		case apperrors.Is(err, apperrors.ErrNotFound):
		case apperrors.Is(err, apperrors.ErrDataIntegrity):
			logging.Ctx(ctx).Error().Err(err).Msg("duplicate member access credential")
			return identity.Identity{}, errors.Wrap(err, "[Service.authenticate] member access lookup")
		default:
			return identity.Identity{}, errors.Wrap(err, "[Service.authenticate] member access lookup")
		}
	}

	if !compared {
		credentials.CheckSecret(secret, dummyHash())
	}
	return identity.Identity{}, apperrors.ErrInvalidCredentials
}

func (s *Service) memberIdentity(ctx context.Context, access *credentials.MemberAccess) (identity.Identity, error) {
	member, err := s.repos.Members.GetByMembershipID(ctx, access.MembershipID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		logging.Ctx(ctx).Error().
			Int64("membership_id", access.MembershipID).
			Str("created_by", access.CreatedBy).
			Msg("member access credential linked to missing member record")
		return identity.Identity{}, fmt.Errorf("[Service.memberIdentity] membership %d: %w", access.MembershipID, apperrors.ErrMemberRecordMissing)
	}
	if err != nil {
		return identity.Identity{}, errors.Wrap(err, "[Service.memberIdentity] member lookup")
	}
	return member.Identity(), nil
}

// Validate reports whether token names an active, unexpired session. Any
// failure, timeout or cancellation included, counts as invalid.
func (s *Service) Validate(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.validationTimeout)
	defer cancel()

	_, err := s.findValid(ctx, token)
	return err == nil
}

// Resolve validates token and reloads its identity from the credential store.
func (s *Service) Resolve(ctx context.Context, token string) (grant *Grant, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Resolve")
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.validationTimeout)
	defer cancel()

	session, err := s.findValid(ctx, token)
	if err != nil {
		return nil, err
	}

	id, err := s.identityFor(ctx, session)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("[Service.Resolve] %w: %w", apperrors.ErrSessionExpired, ctx.Err())
	}
	return &Grant{Session: session, Identity: id}, nil
}

func (s *Service) findValid(ctx context.Context, token string) (*sessions.Session, error) {
	if token == "" {
		metrics.ValidationTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrSessionExpired
	}

	start := time.Now()
	now := s.nowTime()
	session, err := s.repos.Sessions.FindValid(ctx, token, now)
	metrics.ValidationDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil && ctx.Err() != nil:
		err = ctx.Err()
	case err == nil && !session.ValidAt(now):
		err = apperrors.ErrNotFound
	}

	if err == nil {
		metrics.ValidationTotal.WithLabelValues("valid").Inc()
		return session, nil
	}

	if apperrors.Is(err, apperrors.ErrNotFound) {
		metrics.ValidationTotal.WithLabelValues("invalid").Inc()
		s.deactivateQuietly(ctx, token)
		return nil, fmt.Errorf("[Service.findValid] %w", apperrors.ErrSessionExpired)
	}

	metrics.ValidationTotal.WithLabelValues("error").Inc()
	logging.Ctx(ctx).Warn().Err(err).Str("token", sessions.TokenPrefix(token)).Msg("session validation failed closed")
	return nil, fmt.Errorf("[Service.findValid] %w: %w", apperrors.ErrSessionExpired, err)
}

// deactivateQuietly marks a detected expired session inactive. Unknown tokens
// and store errors are ignored.
func (s *Service) deactivateQuietly(ctx context.Context, token string) {
	if err := s.repos.Sessions.Deactivate(ctx, token); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		logging.Ctx(ctx).Debug().Err(err).Msg("could not deactivate expired session")
	}
}

func (s *Service) identityFor(ctx context.Context, session *sessions.Session) (identity.Identity, error) {
	switch session.Kind {
	case identity.KindAdmin:
		admin, err := s.repos.Admins.GetBySigla(ctx, session.Key)
		if err != nil {
			return identity.Identity{}, fmt.Errorf("[Service.identityFor] admin %s: %w: %w", session.Key, apperrors.ErrSessionExpired, err)
		}
		if !admin.Active {
			return identity.Identity{}, fmt.Errorf("[Service.identityFor] admin %s inactive: %w", session.Key, apperrors.ErrSessionExpired)
		}
		return admin.Identity(), nil
	case identity.KindMember:
		membershipID, err := identity.MembershipIDFromKey(session.Key)
		if err != nil {
			return identity.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrDataIntegrity, err)
		}
		member, err := s.repos.Members.GetByMembershipID(ctx, membershipID)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return identity.Identity{}, fmt.Errorf("[Service.identityFor] membership %d: %w", membershipID, apperrors.ErrMemberRecordMissing)
		}
		if err != nil {
			return identity.Identity{}, fmt.Errorf("[Service.identityFor] %w: %w", apperrors.ErrSessionExpired, err)
		}
		return member.Identity(), nil
	default:
		return identity.Identity{}, fmt.Errorf("[Service.identityFor] session kind %q: %w", session.Kind, apperrors.ErrDataIntegrity)
	}
}

// Enter resolves token and applies the policy for area. A denied session is
// logged out before ErrUnauthorizedRole is returned.
func (s *Service) Enter(ctx context.Context, token string, area Area) (grant *Grant, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Enter", trace.WithAttributes(attribute.String("area", string(area))))
	defer func() { endSpan(span, err) }()

	grant, err = s.Resolve(ctx, token)
	if err != nil {
		metrics.AreaEntryTotal.WithLabelValues(string(area), "unauthenticated").Inc()
		return nil, err
	}

	if !s.policy.CanEnter(area, grant.Identity) {
		metrics.AreaEntryTotal.WithLabelValues(string(area), "denied").Inc()
		logging.Ctx(ctx).Warn().
			Str("identity", grant.Identity.String()).
			Str("role", grant.Identity.Role()).
			Str("area", string(area)).
			Msg("area entry denied, forcing logout")
		if err := s.logout(ctx, token, "forced"); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("forced logout failed")
		}
		return nil, fmt.Errorf("[Service.Enter] %s may not enter %s: %w", grant.Identity, area, apperrors.ErrUnauthorizedRole)
	}

	metrics.AreaEntryTotal.WithLabelValues(string(area), "allowed").Inc()
	return grant, nil
}

// Logout deactivates the session. Unknown and already inactive tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	return s.logout(ctx, token, "user")
}

func (s *Service) logout(ctx context.Context, token, reason string) error {
	if token == "" {
		return nil
	}
	err := s.repos.Sessions.Deactivate(ctx, token)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return errors.Wrap(err, "[Service.Logout] deactivate")
	}
	metrics.LogoutTotal.WithLabelValues(reason).Inc()
	return nil
}

// RevokeIdentity deactivates every active session held by id.
func (s *Service) RevokeIdentity(ctx context.Context, id identity.Identity) (int64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("[Service.RevokeIdentity] %w", apperrors.ErrInvalidRequest)
	}
	n, err := s.repos.Sessions.DeactivateByIdentity(ctx, id.Kind, id.Key())
	if err != nil {
		return 0, errors.Wrap(err, "[Service.RevokeIdentity] deactivate")
	}
	metrics.LogoutTotal.WithLabelValues("revoked").Add(float64(n))
	return n, nil
}

// PurgeExpired deletes sessions that expired more than retention ago.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repos.Sessions.PurgeExpired(ctx, s.nowTime().Add(-retention))
	if err != nil {
		return 0, errors.Wrap(err, "[Service.PurgeExpired]")
	}
	metrics.SessionsPurged.Add(float64(n))
	return n, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Code(err))
	}
	span.End()
}
