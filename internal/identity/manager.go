package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/internal/profiles"
	pkgauth "github.com/virtualmandi/mandi-backend/pkg/auth"
	"github.com/virtualmandi/mandi-backend/pkg/auth/session"
	"github.com/virtualmandi/mandi-backend/pkg/config"
	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
	"github.com/virtualmandi/mandi-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// State describes where an account sits in the session lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateResolving       State = "resolving"
	StateAuthenticated   State = "authenticated"
	// StateAuthenticatedNoProfile marks a credential whose profile row is
	// missing, the orphan window left by a partially failed sign-up. Treated
	// as effectively unauthenticated by consumers.
	StateAuthenticatedNoProfile State = "authenticated_no_profile"
)

// Identity is the resolved "who is logged in" record.
type Identity struct {
	UserID  uuid.UUID            `json:"user_id"`
	State   State                `json:"state"`
	Role    enums.UserRole       `json:"role,omitempty"`
	Profile *profiles.ProfileDTO `json:"profile,omitempty"`
}

// EventKind labels identity lifecycle notifications.
type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventProfileUpdated EventKind = "profile_updated"
)

// Event is delivered to subscribers on identity changes.
type Event struct {
	Kind     EventKind
	Identity Identity
}

// SignUpInput holds the payload for account creation.
type SignUpInput struct {
	Email           string
	Password        string
	Name            string
	Role            enums.UserRole
	Mobile          *string
	LocationLat     *float64
	LocationLng     *float64
	LocationAddress *string
}

// UpdateProfileInput holds optional partial profile fields.
type UpdateProfileInput struct {
	Name            *string
	Mobile          *string
	Email           *string
	LocationLat     *float64
	LocationLng     *float64
	LocationAddress *string
}

// SignInResult bundles the resolved identity with its token pair. Tokens are
// empty when the resolved state is not Authenticated.
type SignInResult struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

type credentialRepository interface {
	Create(ctx context.Context, credential *models.Credential) (*models.Credential, error)
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type profileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateFields(ctx context.Context, userID uuid.UUID, fields map[string]any) error
}

type roleRepository interface {
	Assign(ctx context.Context, userID uuid.UUID, role enums.UserRole) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

type duplicateChecker func(err error) bool

// ManagerParams bundles the dependencies required to build a Manager.
type ManagerParams struct {
	Credentials credentialRepository
	Profiles    profileRepository
	Roles       roleRepository
	Sessions    sessionManager
	JWTConfig   config.JWTConfig
	Password    config.PasswordConfig
	Logger      *logger.Logger
	// IsDuplicate reports whether a create error is a unique violation.
	IsDuplicate duplicateChecker
}

// Manager is the single source of truth for account identity. It owns
// sign-up, sign-in, sign-out, and profile updates, and notifies subscribers
// on every lifecycle change.
type Manager struct {
	credentials credentialRepository
	profiles    profileRepository
	roles       roleRepository
	sessions    sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	isDuplicate duplicateChecker

	mu          sync.Mutex
	subscribers map[int]chan Event
	nextToken   int
}

// NewManager constructs an identity manager with the provided dependencies.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("role repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.IsDuplicate == nil {
		params.IsDuplicate = func(error) bool { return false }
	}
	return &Manager{
		credentials: params.Credentials,
		profiles:    params.Profiles,
		roles:       params.Roles,
		sessions:    params.Sessions,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.Password,
		logg:        params.Logger,
		isDuplicate: params.IsDuplicate,
		subscribers: map[int]chan Event{},
	}, nil
}

// Subscribe registers a listener for identity events. The returned token must
// be passed to Unsubscribe when the listener goes away.
func (m *Manager) Subscribe() (int, <-chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := m.nextToken
	m.nextToken++
	ch := make(chan Event, 16)
	m.subscribers[token] = ch
	return token, ch
}

// Unsubscribe removes the listener and closes its channel.
func (m *Manager) Unsubscribe(token int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[token]; ok {
		delete(m.subscribers, token)
		close(ch)
	}
}

func (m *Manager) publish(evt Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- evt:
		default:
			// slow subscriber, drop rather than block the auth path
		}
	}
}

// SignUp creates the credential, then the profile, then the role binding.
// The three writes are sequential and not transactional: a failure after the
// credential insert leaves an orphaned credential without profile or role,
// and the error names the step that failed.
func (m *Manager) SignUp(ctx context.Context, input SignUpInput) (*Identity, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	hash, err := security.HashPassword(input.Password, m.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password rejected")
	}

	credential, err := m.credentials.Create(ctx, &models.Credential{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if m.isDuplicate(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credential creation failed")
	}

	profileEmail := credential.Email
	profile, err := m.profiles.Create(ctx, &models.Profile{
		UserID:          credential.ID,
		Name:            strings.TrimSpace(input.Name),
		Mobile:          input.Mobile,
		Email:           &profileEmail,
		LocationLat:     input.LocationLat,
		LocationLng:     input.LocationLng,
		LocationAddress: input.LocationAddress,
	})
	if err != nil {
		m.warnOrphan(ctx, credential.ID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "profile creation failed after credential")
	}

	if err := m.roles.Assign(ctx, credential.ID, input.Role); err != nil {
		m.warnOrphan(ctx, credential.ID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "role assignment failed after profile")
	}

	return &Identity{
		UserID:  credential.ID,
		State:   StateAuthenticated,
		Role:    input.Role,
		Profile: profiles.FromModel(profile),
	}, nil
}

// SignIn authenticates the credential and resolves profile and role. Tokens
// are minted only when resolution reaches Authenticated; the orphan-credential
// state comes back without tokens so consumers treat it as unauthenticated.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	credential, err := m.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := m.credentials.UpdateLastLogin(ctx, credential.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}

	identity, err := m.Resolve(ctx, credential.ID)
	if err != nil {
		return nil, err
	}
	if identity.State != StateAuthenticated {
		return &SignInResult{Identity: *identity}, nil
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(m.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: credential.ID,
		Role:   identity.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := m.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	m.publish(Event{Kind: EventSignedIn, Identity: *identity})

	return &SignInResult{
		Identity:     *identity,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// SignOut revokes the refresh session tied to the access identifier and
// notifies subscribers so session-scoped caches are torn down.
func (m *Manager) SignOut(ctx context.Context, userID uuid.UUID, accessID string) error {
	if err := m.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	m.publish(Event{Kind: EventSignedOut, Identity: Identity{
		UserID: userID,
		State:  StateUnauthenticated,
	}})
	return nil
}

// UpdateProfile writes partial fields, then re-fetches and replaces the full
// resolved identity.
func (m *Manager) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Identity, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authenticated")
	}

	fields := buildProfileFields(input)
	if err := m.profiles.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	identity, err := m.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if identity.State != StateAuthenticated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	m.publish(Event{Kind: EventProfileUpdated, Identity: *identity})
	return identity, nil
}

// Bootstrap re-resolves a persisted session, typically one presented after a
// process restart. The identity sits in the resolving state until the
// credential is re-checked; a missing or deactivated credential comes back
// unauthenticated alongside the error.
func (m *Manager) Bootstrap(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	resolving := Identity{UserID: userID, State: StateResolving}

	credential, err := m.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resolving.State = StateUnauthenticated
			return &resolving, pkgerrors.New(pkgerrors.CodeUnauthorized, "session account no longer exists")
		}
		return &resolving, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bootstrap credential")
	}
	if !credential.IsActive {
		resolving.State = StateUnauthenticated
		return &resolving, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is deactivated")
	}

	return m.Resolve(ctx, userID)
}

// Resolve loads the profile and role for a credential and derives the
// session state. A missing profile or role yields the no-profile state.
func (m *Manager) Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	profile, err := m.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Identity{UserID: userID, State: StateAuthenticatedNoProfile}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve profile")
	}

	role, err := m.roles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Identity{
				UserID:  userID,
				State:   StateAuthenticatedNoProfile,
				Profile: profiles.FromModel(profile),
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve role")
	}

	return &Identity{
		UserID:  userID,
		State:   StateAuthenticated,
		Role:    role,
		Profile: profiles.FromModel(profile),
	}, nil
}

func (m *Manager) authenticate(ctx context.Context, email, password string) (*models.Credential, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	credential, err := m.credentials.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup credential")
	}

	valid, err := security.VerifyPassword(password, credential.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !credential.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return credential, nil
}

func (m *Manager) warnOrphan(ctx context.Context, userID uuid.UUID, err error) {
	if m.logg == nil {
		return
	}
	ctx = m.logg.WithUserID(ctx, userID.String())
	m.logg.Warn(ctx, fmt.Sprintf("sign-up left orphaned credential: %v", err))
}

func buildProfileFields(input UpdateProfileInput) map[string]any {
	fields := map[string]any{}
	if input.Name != nil {
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Mobile != nil {
		fields["mobile"] = *input.Mobile
	}
	if input.Email != nil {
		fields["email"] = *input.Email
	}
	if input.LocationLat != nil {
		fields["location_lat"] = *input.LocationLat
	}
	if input.LocationLng != nil {
		fields["location_lng"] = *input.LocationLng
	}
	if input.LocationAddress != nil {
		fields["location_address"] = *input.LocationAddress
	}
	return fields
}
