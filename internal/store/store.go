package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// Store is the organization/profile record store. Rows live in the hosted
// Postgres; this process never keeps local state.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// CreateOrganization inserts a new organization and returns its generated id.
func (s *Store) CreateOrganization(ctx context.Context, org Organization) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, email, plan_type, trial_expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, org.Name, org.Email, org.PlanType, org.TrialExpiresAt, org.CreatedBy)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

func (s *Store) CreateProfile(ctx context.Context, p Profile) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, active_organization_id, role)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Email, p.FullName, p.ActiveOrganizationID, p.Role)
	return err
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return err
}

func (s *Store) AddOrganizationUser(ctx context.Context, orgID, userID, role string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO organization_users (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`, orgID, userID, role)
	return err
}

func (s *Store) RemoveOrganizationUser(ctx context.Context, orgID, userID string) error {
	_, err := s.Pool.Exec(ctx, `
		DELETE FROM organization_users WHERE organization_id = $1 AND user_id = $2
	`, orgID, userID)
	return err
}

func (s *Store) GetProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := s.Pool.QueryRow(ctx, `
		SELECT id, email, full_name, active_organization_id, role
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &p.ActiveOrganizationID, &p.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateCheckoutCompleted records the Stripe identifiers on the
// organization after a completed checkout session. Re-applying the same
// event overwrites the same fields with the same values.
func (s *Store) UpdateCheckoutCompleted(ctx context.Context, orgID, customerID, subscriptionID, planTier string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE organizations
		SET stripe_customer_id = $2,
		    stripe_subscription_id = $3,
		    plan_tier = $4,
		    subscription_status = 'active'
		WHERE id = $1
	`, orgID, customerID, subscriptionID, planTier)
	return err
}

func (s *Store) UpdateSubscriptionByCustomer(ctx context.Context, customerID, subscriptionID, status string, periodEnd *time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE organizations
		SET stripe_subscription_id = $2,
		    subscription_status = $3,
		    current_period_end = $4
		WHERE stripe_customer_id = $1
	`, customerID, subscriptionID, status, periodEnd)
	return err
}

func (s *Store) UpdateSubscriptionBySubID(ctx context.Context, subscriptionID, status string, periodEnd *time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE organizations
		SET subscription_status = $2,
		    current_period_end = $3
		WHERE stripe_subscription_id = $1
	`, subscriptionID, status, periodEnd)
	return err
}

func (s *Store) CancelSubscriptionBySubID(ctx context.Context, subscriptionID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE organizations
		SET subscription_status = 'canceled',
		    stripe_subscription_id = NULL
		WHERE stripe_subscription_id = $1
	`, subscriptionID)
	return err
}
