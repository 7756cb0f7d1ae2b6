package signup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Darcywood/civdocs-landing/internal/identity"
	"github.com/Darcywood/civdocs-landing/internal/store"
)

// Request is the trial signup payload. It is validated once and never
// persisted directly.
type Request struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Company         string `json:"company"`
	PlanType        string `json:"plan_type"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ValidationError marks client input problems; handlers map it to 400.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// IdentityService is the slice of the auth-service client the saga needs.
type IdentityService interface {
	CreateUser(ctx context.Context, email, password string) (string, error)
	DeleteUser(ctx context.Context, id string) error
}

// RecordStore is the slice of the record store the saga needs.
type RecordStore interface {
	CreateOrganization(ctx context.Context, org store.Organization) (string, error)
	DeleteOrganization(ctx context.Context, id string) error
	CreateProfile(ctx context.Context, p store.Profile) error
	DeleteProfile(ctx context.Context, id string) error
	AddOrganizationUser(ctx context.Context, orgID, userID, role string) error
	RemoveOrganizationUser(ctx context.Context, orgID, userID string) error
}

// WelcomeMailer sends the post-signup welcome email.
type WelcomeMailer interface {
	SendTrialWelcome(ctx context.Context, to, name string) error
}

// TrialPeriod is how long a newly created organization stays on trial.
const TrialPeriod = 14 * 24 * time.Hour

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	validPlans   = []string{"bronze", "silver", "gold"}
)

// Saga runs the multi-step trial signup across the auth service and the
// record store. Each completed step pushes a compensating action; any
// later hard failure unwinds them in reverse order.
type Saga struct {
	Identity IdentityService
	Store    RecordStore
	Mailer   WelcomeMailer

	now func() time.Time
}

func NewSaga(id IdentityService, st RecordStore, m WelcomeMailer) *Saga {
	return &Saga{Identity: id, Store: st, Mailer: m, now: time.Now}
}

// StartTrial validates the request, then creates the auth user,
// organization, profile and organization-user link in order. A welcome
// email failure is logged but never fails the signup.
func (s *Saga) StartTrial(ctx context.Context, req Request) error {
	if err := validate(req); err != nil {
		return err
	}

	var undo compensation

	userID, err := s.Identity.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return err
		}
		return fmt.Errorf("create user account: %w", err)
	}
	undo.push("auth user", func(ctx context.Context) error {
		return s.Identity.DeleteUser(ctx, userID)
	})
	log.Info().Str("user_id", userID).Str("email", req.Email).Msg("trial signup: auth user created")

	orgID, err := s.Store.CreateOrganization(ctx, store.Organization{
		Name:           req.Company,
		Email:          req.Email,
		PlanType:       req.PlanType,
		TrialExpiresAt: s.now().Add(TrialPeriod),
		CreatedBy:      userID,
	})
	if err != nil {
		undo.run(ctx)
		return fmt.Errorf("create organization: %w", err)
	}
	undo.push("organization", func(ctx context.Context) error {
		return s.Store.DeleteOrganization(ctx, orgID)
	})
	log.Info().Str("org_id", orgID).Msg("trial signup: organization created")

	if err := s.Store.CreateProfile(ctx, store.Profile{
		ID:                   userID,
		Email:                req.Email,
		FullName:             req.FullName,
		ActiveOrganizationID: orgID,
		Role:                 "admin",
	}); err != nil {
		undo.run(ctx)
		return fmt.Errorf("create user profile: %w", err)
	}
	undo.push("profile", func(ctx context.Context) error {
		return s.Store.DeleteProfile(ctx, userID)
	})

	if err := s.Store.AddOrganizationUser(ctx, orgID, userID, "admin"); err != nil {
		undo.run(ctx)
		return fmt.Errorf("link user to organization: %w", err)
	}

	firstName := req.FullName
	if fields := strings.Fields(req.FullName); len(fields) > 0 {
		firstName = fields[0]
	}
	if err := s.Mailer.SendTrialWelcome(ctx, req.Email, firstName); err != nil {
		// The account stands even if the welcome email never arrives.
		log.Error().Err(err).Str("email", req.Email).Msg("trial signup: welcome email failed")
	}

	log.Info().Str("user_id", userID).Str("org_id", orgID).Msg("trial signup completed")
	return nil
}

func validate(req Request) error {
	if req.FullName == "" || req.Email == "" || req.Company == "" ||
		req.PlanType == "" || req.Password == "" || req.ConfirmPassword == "" {
		return ValidationError{"Missing required fields: full_name, email, company, plan_type, password, and confirmPassword are required"}
	}
	if req.Password != req.ConfirmPassword {
		return ValidationError{"Passwords do not match"}
	}
	if !emailPattern.MatchString(req.Email) {
		return ValidationError{"Invalid email format"}
	}
	valid := false
	for _, p := range validPlans {
		if req.PlanType == p {
			valid = true
			break
		}
	}
	if !valid {
		return ValidationError{"Invalid plan_type. Must be one of: " + strings.Join(validPlans, ", ")}
	}
	return nil
}
