// Package identity registers, signs in and verifies residents and officials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gramaalert-be/models"
	"gramaalert-be/session"
	"gramaalert-be/users"
	authUtils "gramaalert-be/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

// Same rules gin applies to bound request bodies.
var validate = validator.New()

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrWeakPassword        = errors.New("password should be at least 6 characters")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidRole         = errors.New("role must be citizen or admin")
	ErrInvalidAdminCode    = errors.New("invalid admin access code")
	ErrEmailInUse          = users.ErrEmailTaken
	ErrAlreadyVerified     = errors.New("email address is already verified")
	ErrInvalidVerifyToken  = errors.New("verification link is invalid or has already been used")
	ErrSignedOut           = errors.New("session has been signed out")
	ErrVerificationNotSent = errors.New("verification email could not be sent")
)

// VerificationMailer sends the email-ownership link.
type VerificationMailer interface {
	NotifyVerification(email, link string) error
}

type Options struct {
	JWTSecret       string
	TokenTTL        time.Duration
	AdminAccessCode string
	VerifyURL       string
}

type Provider struct {
	users     users.Repository
	blacklist Blacklist
	mailer    VerificationMailer
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewProvider(repo users.Repository, blacklist Blacklist, mailer VerificationMailer, opts Options, log *zap.Logger) *Provider {
	return &Provider{
		users:     repo,
		blacklist: blacklist,
		mailer:    mailer,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	Role      models.Role
	AdminCode string
}

// Register creates an unverified profile and mails the verification link.
// The new account is not signed in.
func (p *Provider) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleCitizen
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.RoleAdmin && in.AdminCode != p.opts.AdminAccessCode {
		return nil, ErrInvalidAdminCode
	}
	if err := validate.Var(in.Password, fmt.Sprintf("min=%d", minPasswordLength)); err != nil {
		return nil, ErrWeakPassword
	}

	existing, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}

	u := &models.User{
		Email:             email,
		Password:          in.Password,
		Role:              role,
		VerificationToken: uuid.NewString(),
		CreatedAt:         p.now().UTC(),
	}
	if err := u.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if _, err := p.users.Create(ctx, u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := p.mailer.NotifyVerification(u.Email, p.verifyLink(u.VerificationToken)); err != nil {
		// The account stays; the user can ask for the link again.
		p.log.Error("verification email not sent", zap.String("uid", u.ID), zap.Error(err))
	}
	p.log.Info("user registered", zap.String("uid", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// SignIn checks the password and issues an access token. Unverified
// accounts may sign in; their session simply stays unverified.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := p.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !u.ComparePassword(password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := authUtils.GenerateToken(p.opts.JWTSecret, u.ID, p.opts.TokenTTL, p.now())
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, u, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	_, exp, err := authUtils.ParseToken(p.opts.JWTSecret, token)
	if err != nil {
		return nil
	}
	return p.blacklist.Add(ctx, token, exp.Sub(p.now()))
}

// Authenticate turns a raw token into the credential the session manager
// consumes. Verification state is read fresh from the profile.
func (p *Provider) Authenticate(ctx context.Context, token string) (*session.Credential, error) {
	uid, _, err := authUtils.ParseToken(p.opts.JWTSecret, token)
	if err != nil {
		return nil, err
	}
	revoked, err := p.blacklist.Contains(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrSignedOut
	}
	u, err := p.users.GetByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, authUtils.ErrInvalidToken
	}
	return &session.Credential{UID: u.ID, Email: u.Email, Verified: u.Verified, Token: token}, nil
}

func (p *Provider) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidVerifyToken
	}
	u, err := p.users.GetByVerificationToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidVerifyToken
	}
	if err := p.users.MarkVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	u.Verified = true
	u.VerificationToken = ""
	return u, nil
}

// ResendVerification rotates the verification token and mails it again.
func (p *Provider) ResendVerification(ctx context.Context, uid string) error {
	u, err := p.users.GetByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return authUtils.ErrInvalidToken
	}
	if u.Verified {
		return ErrAlreadyVerified
	}
	token := uuid.NewString()
	if err := p.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	if err := p.mailer.NotifyVerification(u.Email, p.verifyLink(token)); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationNotSent, err)
	}
	return nil
}

func (p *Provider) verifyLink(token string) string {
	base := p.opts.VerifyURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}
